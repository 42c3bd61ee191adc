package event

// Filter selects the kinds a subscription receives.
type Filter func(k Kind) bool

// All matches every kind.
func All() Filter {
	return func(Kind) bool { return true }
}

// Only matches the listed kinds.
func Only(kinds ...Kind) Filter {
	var mask uint32
	for _, k := range kinds {
		mask |= 1 << k
	}
	return func(k Kind) bool {
		return mask&(1<<k) != 0
	}
}

// Except matches every kind not listed.
func Except(kinds ...Kind) Filter {
	only := Only(kinds...)
	return func(k Kind) bool {
		return !only(k)
	}
}

// Or matches if any of the filters match.
func Or(filters ...Filter) Filter {
	return func(k Kind) bool {
		for _, f := range filters {
			if f != nil && f(k) {
				return true
			}
		}
		return false
	}
}
