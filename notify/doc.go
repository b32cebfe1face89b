// Package notify provides jwtAuth.Notifier implementations: a Kafka publisher,
// a zap logging notifier for development, and a fan-out combinator.
//
// Confirmation and recovery messages carry a link built from Links; rendering
// and sending the actual email is left to whatever consumes the topic.
package notify
