package finance

// CostBasisMethod defines which shares a sale or a transfer consumes.
type CostBasisMethod int

const (
	// AverageCost consumes every held share equally, at their average cost.
	AverageCost CostBasisMethod = iota
	// FIFO (First-In, First-Out) consumes the shares acquired first.
	FIFO
)

func (m CostBasisMethod) String() string {
	switch m {
	case AverageCost:
		return "average"
	case FIFO:
		return "fifo"
	default:
		return "unknown"
	}
}

// ParseCostBasisMethod parses a string into a CostBasisMethod.
func ParseCostBasisMethod(s string) (CostBasisMethod, error) {
	switch s {
	case "average":
		return AverageCost, nil
	case "fifo":
		return FIFO, nil
	default:
		return 0, invalidf("unknown cost basis method: %q", s)
	}
}
