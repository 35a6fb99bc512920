package message

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// scriptSource is the human-editable form of a script.
type scriptSource struct {
	Messages []Message `yaml:"messages"`
}

// DecodeYAML reads a YAML script source. Timers default to zero (the tick the
// script is loaded on); use -1 for immediate messages.
//
//	messages:
//	  - timer: 50
//	    system: entities
//	    to: player
//	    cmd: damage
//	    args: ["10"]
func DecodeYAML(r io.Reader) ([]Message, error) {
	var src scriptSource
	if err := yaml.NewDecoder(r).Decode(&src); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode yaml script: %w", err)
	}

	for i, msg := range src.Messages {
		if err := validate(msg); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}
	return src.Messages, nil
}
