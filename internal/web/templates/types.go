package templates

type OptionsPageData struct {
	Email string
	Team  string
	Teams []string
	// Status is shown after a successful save.
	Status string
	Error  string
	// ShimURL is the script pages include to report activity.
	ShimURL string
}
