package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/guardian/internal/diag"
	"github.com/felixgeelhaar/guardian/internal/prereq"
)

// doctorReport is the machine-readable result of guardian doctor.
type doctorReport struct {
	Healthy       bool             `json:"healthy" yaml:"healthy"`
	OS            string           `json:"os" yaml:"os"`
	Arch          string           `json:"arch" yaml:"arch"`
	Prerequisites []*prereq.Status `json:"prerequisites" yaml:"prerequisites"`
	CI            string           `json:"ci,omitempty" yaml:"ci,omitempty"`
	Error         string           `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r *doctorReport) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Platform: %s/%s\n", r.OS, r.Arch)
	if r.CI != "" {
		fmt.Fprintf(w, "CI: %s\n", r.CI)
	}
	for _, st := range r.Prerequisites {
		fmt.Fprintf(w, "  %s\n", st.Line())
		if st.Invocation != "" {
			fmt.Fprintf(w, "      invoke as: %s (%s)\n", st.Invocation, st.Method)
		}
	}
	if r.Healthy {
		_, err := fmt.Fprintln(w, "All prerequisites satisfied")
		return err
	}
	_, err := fmt.Fprintf(w, "Prerequisites not satisfied: %s\n", r.Error)
	return err
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Verify the runtime, package manager and application without launching",
		Long: `Check every prerequisite the way "guardian run" does, offering the same
installs, and then print a summary. Nothing is launched and no audit runs.`,
		Args: cobra.NoArgs,
		RunE: runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	formatter, err := env.formatter(cmd)
	if err != nil {
		return err
	}

	p := env.pipeline()
	p.Header()
	statuses, checkErr := p.Checker().Run()

	host := diag.DetectEnvironment(nil, prereq.ToolingFromConfig(env.cfg), p.Session())
	report := &doctorReport{
		Healthy:       checkErr == nil,
		OS:            host.OS,
		Arch:          host.Arch,
		Prerequisites: statuses,
		CI:            host.CI.Name,
	}
	if checkErr != nil {
		report.Error = firstLine(checkErr.Error())
	}

	if err := formatter.Format(report); err != nil {
		return err
	}
	return env.finish(checkErr)
}
