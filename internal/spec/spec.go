package spec

type TransformerSpec struct {
	Spec       string `koanf:"spec" yaml:"spec"`               // builtin name, expr:, grpc://, js: or bare JS
	ScriptFile string `koanf:"script_file" yaml:"script_file"` // JS source read from disk instead of Spec
	TimeoutMS  int    `koanf:"timeout_ms" yaml:"timeout_ms"`   // per-line deadline for grpc:// transformers
}

type TallySpec struct {
	FlushEvery int `koanf:"flush_every" yaml:"flush_every"`
}

type KafkaSinkSpec struct {
	Brokers      []string `koanf:"brokers" yaml:"brokers"`
	Topic        string   `koanf:"topic" yaml:"topic"`
	RequiredAcks int16    `koanf:"required_acks" yaml:"required_acks"` // 0,1,-1
}

type MetricsSpec struct {
	Addr string `koanf:"addr" yaml:"addr"` // empty = disabled
}

type LogSpec struct {
	Level string `koanf:"level" yaml:"level"`
	JSON  bool   `koanf:"json" yaml:"json"`
}

type File struct {
	SchemaVersion string `koanf:"schema_version" yaml:"schema_version"`

	Transformer TransformerSpec `koanf:"transformer" yaml:"transformer"`
	Tally       TallySpec       `koanf:"tally" yaml:"tally"`

	// Every transformer result is pushed to each sink in order.
	Sinks []string      `koanf:"sinks" yaml:"sinks"`
	Kafka KafkaSinkSpec `koanf:"kafka" yaml:"kafka"`

	Metrics MetricsSpec `koanf:"metrics" yaml:"metrics"`
	Log     LogSpec     `koanf:"log" yaml:"log"`
}
