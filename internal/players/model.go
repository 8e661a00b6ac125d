package players

type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"username,omitempty"`
	Combo uint32 `json:"combo"`
}

func (p Participant) HasName() bool {
	return p.Name != ""
}
