package main

import (
	"encoding/json"

	"github.com/irctrakz/vwproto/pkg/sdata"
)

// jsonParser adapts JSON event-queue bodies to structured-data trees. The
// simulator's own binary/XML structured-data codec plugs into the same seam;
// JSON covers development servers and local testing.
func jsonParser(body []byte) (sdata.Map, error) {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	return sdata.Map(m), nil
}
