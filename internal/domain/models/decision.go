package models

import (
	"encoding/json"
	"fmt"
)

// Action is the portfolio decision verb. The backend set is open ended, so
// unknown verbs are carried through unchanged.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionHold  Action = "hold"
	ActionShort Action = "short"
	ActionCover Action = "cover"
)

// Decision is the portfolio manager output for one ticker. Fields the schema
// does not know about survive a decode/encode round trip via Extra.
type Decision struct {
	Action     Action
	Confidence *float64
	Reasoning  json.RawMessage
	Extra      map[string]json.RawMessage
}

func (d *Decision) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("decision payload: %w", err)
	}
	for k, v := range m {
		switch k {
		case "action":
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("decision action: %w", err)
			}
			d.Action = Action(s)
		case "confidence":
			if err := json.Unmarshal(v, &d.Confidence); err != nil {
				return fmt.Errorf("decision confidence: %w", err)
			}
		case "reasoning":
			d.Reasoning = append(json.RawMessage(nil), v...)
		default:
			if d.Extra == nil {
				d.Extra = make(map[string]json.RawMessage)
			}
			d.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return nil
}

func (d Decision) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(d.Extra)+3)
	for k, v := range d.Extra {
		m[k] = v
	}
	if d.Action != "" {
		b, err := json.Marshal(d.Action)
		if err != nil {
			return nil, err
		}
		m["action"] = b
	}
	if d.Confidence != nil {
		b, err := json.Marshal(*d.Confidence)
		if err != nil {
			return nil, err
		}
		m["confidence"] = b
	}
	if len(d.Reasoning) > 0 {
		m["reasoning"] = d.Reasoning
	}
	return json.Marshal(m)
}

// AgentSignal is one analyst's verdict for one ticker. The payload is open:
// risk manager entries add position limits and prices, and future agents may
// add more, so unknown keys are kept verbatim in Extra. Reasoning may be a
// string or a structured object depending on the agent.
type AgentSignal struct {
	Signal                 string
	Confidence             *float64
	Reasoning              json.RawMessage
	RemainingPositionLimit *float64
	CurrentPrice           *float64
	RiskReasoning          json.RawMessage
	Extra                  map[string]json.RawMessage
}

func (s *AgentSignal) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("agent signal payload: %w", err)
	}
	for k, v := range m {
		switch k {
		case "signal":
			if err := json.Unmarshal(v, &s.Signal); err != nil {
				return fmt.Errorf("agent signal value: %w", err)
			}
		case "confidence":
			if err := json.Unmarshal(v, &s.Confidence); err != nil {
				return fmt.Errorf("agent signal confidence: %w", err)
			}
		case "reasoning":
			s.Reasoning = append(json.RawMessage(nil), v...)
		case "remaining_position_limit":
			if err := json.Unmarshal(v, &s.RemainingPositionLimit); err != nil {
				return fmt.Errorf("agent signal position limit: %w", err)
			}
		case "current_price":
			if err := json.Unmarshal(v, &s.CurrentPrice); err != nil {
				return fmt.Errorf("agent signal price: %w", err)
			}
		case "risk_reasoning":
			s.RiskReasoning = append(json.RawMessage(nil), v...)
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]json.RawMessage)
			}
			s.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return nil
}

// Clone returns a deep copy, including raw JSON fields and extras.
func (s AgentSignal) Clone() AgentSignal {
	out := s
	if s.Confidence != nil {
		c := *s.Confidence
		out.Confidence = &c
	}
	if s.RemainingPositionLimit != nil {
		l := *s.RemainingPositionLimit
		out.RemainingPositionLimit = &l
	}
	if s.CurrentPrice != nil {
		p := *s.CurrentPrice
		out.CurrentPrice = &p
	}
	out.Reasoning = append(json.RawMessage(nil), s.Reasoning...)
	out.RiskReasoning = append(json.RawMessage(nil), s.RiskReasoning...)
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

func (s AgentSignal) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(s.Extra)+6)
	for k, v := range s.Extra {
		m[k] = v
	}
	if s.Signal != "" {
		b, err := json.Marshal(s.Signal)
		if err != nil {
			return nil, err
		}
		m["signal"] = b
	}
	if s.Confidence != nil {
		b, err := json.Marshal(*s.Confidence)
		if err != nil {
			return nil, err
		}
		m["confidence"] = b
	}
	if len(s.Reasoning) > 0 {
		m["reasoning"] = s.Reasoning
	}
	if s.RemainingPositionLimit != nil {
		b, err := json.Marshal(*s.RemainingPositionLimit)
		if err != nil {
			return nil, err
		}
		m["remaining_position_limit"] = b
	}
	if s.CurrentPrice != nil {
		b, err := json.Marshal(*s.CurrentPrice)
		if err != nil {
			return nil, err
		}
		m["current_price"] = b
	}
	if len(s.RiskReasoning) > 0 {
		m["risk_reasoning"] = s.RiskReasoning
	}
	return json.Marshal(m)
}
