package bias

// Row is one line of the long-form sweep result table: one scenario, one
// activity assumption, one parameter.
type Row struct {
	Onset       int
	PctInactive float64
	Assumption  Assumption
	Parameter   string
	BiasPct     float64
}

// Rows flattens the aggregate's bias vectors into long form, in fixed
// assumption and parameter order. Assumptions with no converged fit produce
// no rows.
func (a *Aggregate) Rows() []Row {
	var rows []Row
	for _, asm := range Assumptions {
		b, ok := a.Bias[asm]
		if !ok {
			continue
		}
		for _, param := range Parameters {
			v, err := b.Get(param)
			if err != nil {
				continue
			}
			rows = append(rows, Row{
				Onset:       a.Scenario.Onset,
				PctInactive: a.Scenario.PctInactive,
				Assumption:  asm,
				Parameter:   param,
				BiasPct:     v,
			})
		}
	}
	return rows
}
