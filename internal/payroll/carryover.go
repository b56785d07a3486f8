package payroll

// NextCarryover chains the opening balance of a new cycle from its
// predecessor: carryover minus applied, unset values counting as zero. A nil
// predecessor means no chain exists yet and the new cycle opens with nil.
// Archived predecessors are never passed here; once a successor has captured
// their values the chain treats them as frozen history.
func NextCarryover(predecessor *Cycle) *float64 {
	if predecessor == nil {
		return nil
	}
	balance := deref(predecessor.PayoneerBalanceCarryover) - deref(predecessor.PayoneerBalanceApplied)
	return &balance
}
