package cosmosclient

import "encoding/json"

func defaultJSONMarshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}
