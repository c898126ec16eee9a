package domain

type Tenant struct {
	Key            string   `json:"key"`
	Name           string   `json:"name"`
	Partition      string   `json:"tableName"`
	Offers         []string `json:"offers"`
	WinProbability float64  `json:"winProbability"`
}

func (t Tenant) Reward() *Reward {
	offers := make([]string, len(t.Offers))
	copy(offers, t.Offers)

	return &Reward{
		Offers:         offers,
		Partition:      t.Partition,
		WinProbability: t.WinProbability,
	}
}
