package jsonx

import "encoding/json"

// Decode converts a bus payload into dst. Raw JSON ([]byte or string) is
// unmarshalled directly; anything else (maps from embedded config, typed
// structs) goes through a marshal round trip.
func Decode[T any](src any, dst *T) error {
	switch v := src.(type) {
	case nil:
		return nil
	case *T:
		*dst = *v
		return nil
	case T:
		*dst = v
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
