// Package kafkasender implements eventpublisher.Sender for Apache Kafka using segmentio/kafka-go.
//
// One kafka.Writer serves all topics: the topic is set per message, so the SenderFactory hands out
// lightweight per-topic senders that share the writer.
package kafkasender
