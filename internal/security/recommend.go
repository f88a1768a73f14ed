package security

// Recommendation is the launch advice derived from an audit.
type Recommendation string

const (
	ProceedClean       Recommendation = "proceed-clean"
	ProceedWithCaution Recommendation = "proceed-with-caution"
	UpdateRecommended  Recommendation = "update-recommended"
	BlockUntilResolved Recommendation = "block-until-resolved"
)

// Recommend applies the severity policy. Output that was not classified as
// clean but yielded no severities is ambiguous and never reported as clean.
func Recommend(c Classification) Recommendation {
	switch {
	case c.Count(Critical) > 0:
		return BlockUntilResolved
	case c.Count(High) > 0:
		return UpdateRecommended
	case c.Count(Moderate) > 0 || c.Count(Low) > 0:
		return ProceedWithCaution
	case c.Clean:
		return ProceedClean
	default:
		return ProceedWithCaution
	}
}

// Advice returns the follow-up lines printed after an audit.
func Advice(rec Recommendation, c Classification, packageManager, app string) []string {
	switch rec {
	case BlockUntilResolved:
		return []string{
			"Immediate action required",
			"Run: " + packageManager + " audit fix",
			"If that is not enough: " + packageManager + " audit fix --force",
			"Consider not running " + app + " until the critical issues are resolved",
		}
	case UpdateRecommended:
		return []string{
			"Action recommended",
			"Run: " + packageManager + " audit fix",
			"You can use " + app + " but update soon",
		}
	case ProceedWithCaution:
		if len(c.Findings) == 0 {
			return []string{
				"The audit output could not be classified",
				"Run '" + packageManager + " audit' manually or use the 'debug' console command",
			}
		}
		return []string{
			"Only moderate or low severity issues",
			"Run: " + packageManager + " audit fix when convenient",
			"Safe to continue with " + app,
		}
	default:
		return nil
	}
}
