package authz

import (
	"fmt"

	abcitypes "github.com/cometbft/cometbft/abci/types"
)

// extractEventAttribute returns the value of attrKey on the first event of
// type eventType, grounded on the teacher's cosmos.GetEventValue
// (e2e/interchaintestv8/cosmos/utils.go), which walks a broadcast tx's
// []abcitypes.Event the same way to pull a named attribute out of it.
func extractEventAttribute(events []abcitypes.Event, eventType, attrKey string) (string, error) {
	for _, event := range events {
		if event.Type != eventType {
			continue
		}
		for _, attr := range event.Attributes {
			if attr.Key == attrKey {
				return attr.Value, nil
			}
		}
	}
	return "", fmt.Errorf("event type %s with attribute key %s not found", eventType, attrKey)
}
