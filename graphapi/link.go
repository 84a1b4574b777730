package graphapi

import (
	"encoding/json"
	"errors"
)

// Link is an edge between an output slot and an input slot. Top-level
// links serialize as 6-element tuples; newer frontends also emit an
// object form.
type Link struct {
	ID         int
	OriginID   int
	OriginSlot int
	TargetID   int
	TargetSlot int
	Type       string
}

func (l *Link) UnmarshalJSON(b []byte) error {
	// tuple format first
	var tmp []any
	if err := json.Unmarshal(b, &tmp); err == nil {
		if len(tmp) != 6 {
			return errors.New("wrong number of fields in JSON array")
		}
		ints := make([]int, 5)
		for i := 0; i < 5; i++ {
			f, ok := tmp[i].(float64)
			if !ok {
				return errors.New("non-numeric field in link tuple")
			}
			ints[i] = int(f)
		}
		l.ID, l.OriginID, l.OriginSlot, l.TargetID, l.TargetSlot = ints[0], ints[1], ints[2], ints[3], ints[4]
		l.Type, _ = tmp[5].(string)
		return nil
	}

	var obj struct {
		ID         int    `json:"id"`
		OriginID   int    `json:"origin_id"`
		OriginSlot int    `json:"origin_slot"`
		TargetID   int    `json:"target_id"`
		TargetSlot int    `json:"target_slot"`
		Type       string `json:"type"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}

	l.ID = obj.ID
	l.OriginID = obj.OriginID
	l.OriginSlot = obj.OriginSlot
	l.TargetID = obj.TargetID
	l.TargetSlot = obj.TargetSlot
	l.Type = obj.Type

	return nil
}

func (l *Link) MarshalJSON() ([]byte, error) {
	tmp := []any{
		l.ID,
		l.OriginID,
		l.OriginSlot,
		l.TargetID,
		l.TargetSlot,
		l.Type,
	}
	return json.Marshal(tmp)
}
