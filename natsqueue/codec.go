package natsqueue

import (
	"encoding/json"
	"fmt"

	"github.com/velmie/stockrelay"
)

func encodeFields(fields []stockrelay.Field) ([]byte, error) {
	data, err := json.Marshal(stockrelay.FieldMap(fields))
	if err != nil {
		return nil, fmt.Errorf("stockrelay nats: encode failed: %w", err)
	}

	return data, nil
}

func decodeFields(data []byte) (map[string]string, error) {
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("stockrelay nats: decode failed: %w", err)
	}

	return fields, nil
}

func decodeMessage(id string, data []byte) (stockrelay.Message, error) {
	fields, err := decodeFields(data)
	if err != nil {
		return stockrelay.Message{}, err
	}

	return stockrelay.MessageFromFields(id, fields)
}
