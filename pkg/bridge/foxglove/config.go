package foxglove

const (
	EventChannelID     uint64 = 1
	TransformChannelID uint64 = 2
	LogChannelID       uint64 = 3
	MarkerChannelID    uint64 = 4
)

const EventSchema = `{
  "type": "object",
  "properties": {
    "event": { "type": "string" },
    "ts": { "type": "string" },
    "destination": { "type": "string" },
    "variant": { "type": "string" },
    "preset": { "type": "string" },
    "error": { "type": "string" },
    "packet_hex": { "type": "string" },
    "pose": { "type": "object", "additionalProperties": { "type": "number" } }
  },
  "required": ["event", "ts"]
}`

const timeSchema = `{"type":"object","properties":{"sec":{"type":"integer"},"nsec":{"type":"integer"}}}`

const vectorSchema = `{"type":"object","properties":{"x":{"type":"number"},"y":{"type":"number"},"z":{"type":"number"}}}`

const quaternionSchema = `{"type":"object","properties":{"x":{"type":"number"},"y":{"type":"number"},"z":{"type":"number"},"w":{"type":"number"}}}`

const FrameTransformsSchema = `{"type":"object","properties":{"transforms":{"type":"array","items":{"type":"object","properties":{` +
	`"timestamp":` + timeSchema + `,` +
	`"parent_frame_id":{"type":"string"},"child_frame_id":{"type":"string"},` +
	`"translation":` + vectorSchema + `,` +
	`"rotation":` + quaternionSchema + `}}}}}`

const LogSchema = `{"type":"object","properties":{` +
	`"timestamp":` + timeSchema + `,` +
	`"level":{"type":"integer"},"message":{"type":"string"},"name":{"type":"string"},` +
	`"file":{"type":"string"},"line":{"type":"integer"}}}`

const MarkerSchema = `{"type":"object","properties":{` +
	`"header":{"type":"object","properties":{"frame_id":{"type":"string"},"stamp":` + timeSchema + `}},` +
	`"ns":{"type":"string"},"id":{"type":"integer"},"type":{"type":"integer"},"action":{"type":"integer"},` +
	`"pose":{"type":"object","properties":{"position":` + vectorSchema + `,"orientation":` + quaternionSchema + `}},` +
	`"scale":` + vectorSchema + `,` +
	`"color":{"type":"object","properties":{"r":{"type":"number"},"g":{"type":"number"},"b":{"type":"number"},"a":{"type":"number"}}}}}`

type Config struct {
	WSAddr string
	Name   string

	EventTopic     string
	TransformTopic string
	LogTopic       string
	LogName        string
	MarkerTopic    string

	ParentFrameID string
	FrameID       string
	// TranslationScale divides sway, heave and surge before they become metres.
	TranslationScale float64

	SendBuf int
}

func DefaultConfig() Config {
	return Config{
		WSAddr:           "127.0.0.1:8765",
		Name:             "chairctl",
		EventTopic:       "chair/event",
		TransformTopic:   "/tf",
		LogTopic:         "/chair/log",
		LogName:          "chairctl",
		MarkerTopic:      "/chair/marker",
		ParentFrameID:    "world",
		FrameID:          "chair",
		TranslationScale: 50,
		SendBuf:          256,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.WSAddr == "" {
		cfg.WSAddr = def.WSAddr
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.EventTopic == "" {
		cfg.EventTopic = def.EventTopic
	}
	if cfg.TransformTopic == "" {
		cfg.TransformTopic = def.TransformTopic
	}
	if cfg.LogTopic == "" {
		cfg.LogTopic = def.LogTopic
	}
	if cfg.LogName == "" {
		cfg.LogName = def.LogName
	}
	if cfg.MarkerTopic == "" {
		cfg.MarkerTopic = def.MarkerTopic
	}
	if cfg.ParentFrameID == "" {
		cfg.ParentFrameID = def.ParentFrameID
	}
	if cfg.FrameID == "" {
		cfg.FrameID = def.FrameID
	}
	if cfg.TranslationScale <= 0 {
		cfg.TranslationScale = def.TranslationScale
	}
	if cfg.SendBuf <= 0 {
		cfg.SendBuf = def.SendBuf
	}
	return cfg
}
