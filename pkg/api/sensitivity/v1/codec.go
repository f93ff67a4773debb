package sensitivityv1

import (
	"encoding/json"
	"fmt"
)

// JSONCodec - Connect кодек для сообщений пакета.
// Регистрируется под именем "json" и заменяет protojson, так как сообщения не protobuf.
type JSONCodec struct{}

// Name возвращает имя кодека (content-type application/json)
func (JSONCodec) Name() string { return "json" }

// Marshal кодирует сообщение
func (JSONCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

// Unmarshal декодирует сообщение; пустое тело допустимо
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}
