package kafka

import (
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"linepump/sink"
)

type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Acks    int16    `yaml:"required_acks"` // 0,1,-1
}

// driver publishes one message per transformer result. A sync producer
// keeps messages in line order and surfaces broker errors on the line that
// caused them.
type driver struct {
	cfg    Config
	p      sarama.SyncProducer
	closed bool
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return errors.New("kafka-sink: brokers and topic are required")
	}
	d.cfg = cfg

	p, err := sarama.NewSyncProducer(cfg.Brokers, producerConfig(cfg))
	if err != nil {
		return fmt.Errorf("kafka-sink: %w", err)
	}
	d.p = p
	return nil
}

func producerConfig(cfg Config) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true // required by SyncProducer
	sc.Producer.Partitioner = sarama.NewManualPartitioner
	return sc
}

func (d *driver) Push(out string) error {
	_, _, err := d.p.SendMessage(&sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Value: sarama.StringEncoder(out),
	})
	if err != nil {
		return fmt.Errorf("kafka-sink: send to %s: %w", d.cfg.Topic, err)
	}
	return nil
}

func (d *driver) Close() error {
	if d.closed || d.p == nil {
		return nil
	}
	d.closed = true
	return d.p.Close()
}

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
