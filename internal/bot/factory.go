package bot

// NewPolicy returns the policy for a difficulty label. Unknown or empty
// labels fall back to the medium policy, the identity pool default.
func NewPolicy(difficulty string) Policy {
	switch difficulty {
	case DifficultyEasy:
		return EasyPolicy{}
	case DifficultyHard:
		return HardPolicy{Tuning: DefaultTuning}
	default:
		return MediumPolicy{Tuning: DefaultTuning}
	}
}
