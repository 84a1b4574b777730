package graphapi

import (
	"encoding/json"
)

type Pos struct {
	X float64
	Y float64
}

func (p *Pos) UnmarshalJSON(b []byte) error {
	var tmp []float64
	if err := json.Unmarshal(b, &tmp); err != nil {
		// some exports use an object keyed "0"/"1"
		var m map[string]float64
		if err2 := json.Unmarshal(b, &m); err2 != nil {
			return err
		}
		p.X = m["0"]
		p.Y = m["1"]
		return nil
	}
	if len(tmp) > 0 {
		p.X = tmp[0]
	}
	if len(tmp) > 1 {
		p.Y = tmp[1]
	}
	return nil
}

func (p *Pos) MarshalJSON() ([]byte, error) {
	tmp := []float64{p.X, p.Y}
	return json.Marshal(tmp)
}

type Size struct {
	Width  float64
	Height float64
}

// the json code can have either an array of values, or a dictionary of values.
// when marshaling, we'll always output as an array.
func (s *Size) UnmarshalJSON(b []byte) error {
	var tmp []float64
	if err := json.Unmarshal(b, &tmp); err == nil {
		if len(tmp) > 0 {
			s.Width = tmp[0]
		}
		if len(tmp) > 1 {
			s.Height = tmp[1]
		}
		return nil
	}

	var m map[string]float64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	s.Width = m["0"]
	s.Height = m["1"]
	return nil
}

func (s *Size) MarshalJSON() ([]byte, error) {
	tmp := []float64{s.Width, s.Height}
	return json.Marshal(tmp)
}
