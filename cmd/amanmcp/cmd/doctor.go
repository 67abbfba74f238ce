package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/m2ux/concept-rag-sub008/internal/config"
	"github.com/m2ux/concept-rag-sub008/internal/container"
	"github.com/m2ux/concept-rag-sub008/internal/preflight"
	"github.com/m2ux/concept-rag-sub008/internal/ui"
)

func newDoctorCmd() *cobra.Command {
	var root string
	var noColor bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Report on environment health and store integrity",
		Long: `doctor runs the preflight environment checks (disk space, memory,
write permissions, file descriptors, embedder availability) plus two
store-integrity checks: that every category/concept id still equals
hash(normalize(name)), and that every chunk's category ids still match
its parent catalog entry's at read time.

The corpus is opened through the regular read-write container for the
integrity checks (closing it saves the vector indexes); a failing or
missing store only downgrades those two checks to a warning, it does
not fail the whole report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), root, noColor)
		},
	}

	cmd.Flags().StringVar(&root, "dir", ".", "Project directory to check")
	cmd.Flags().BoolVar(&noColor, "no-color", ui.DetectNoColor(), "Disable colored output")

	return cmd
}

func runDoctor(ctx context.Context, root string, noColor bool) error {
	styles := ui.GetStyles(noColor)
	checker := preflight.New(preflight.WithVerbose(true))

	results := checker.RunAll(ctx, root)

	cfg, err := config.Load(root)
	if err == nil {
		if c, err := container.New(ctx, cfg, slog.Default()); err == nil {
			defer func() { _ = c.Close() }()
			results = append(results,
				checker.CheckHashStability(ctx, c.MetadataStore()),
				checker.CheckCategoryInheritance(ctx, c.MetadataStore()),
			)
		} else {
			results = append(results, preflight.CheckResult{
				Name:    "store_integrity",
				Status:  preflight.StatusWarn,
				Message: fmt.Sprintf("could not open corpus to check: %v", err),
			})
		}
	} else {
		results = append(results, preflight.CheckResult{
			Name:    "store_integrity",
			Status:  preflight.StatusWarn,
			Message: fmt.Sprintf("could not load config to check: %v", err),
		})
	}

	fmt.Println(styles.Header.Render("amanmcp doctor"))
	fmt.Println()
	for _, r := range results {
		line := fmt.Sprintf("[%s] %-22s %s", r.Status, r.Name, r.Message)
		switch r.Status {
		case preflight.StatusPass:
			fmt.Println(styles.Success.Render(line))
		case preflight.StatusWarn:
			fmt.Println(styles.Warning.Render(line))
		default:
			fmt.Println(styles.Error.Render(line))
		}
		if r.Details != "" {
			fmt.Println(styles.Dim.Render("    " + r.Details))
		}
	}
	fmt.Println()

	status := checker.SummaryStatus(results)
	fmt.Println(styles.Header.Render("status: " + status))

	if checker.HasCriticalFailures(results) {
		return fmt.Errorf("doctor: one or more required checks failed")
	}
	return nil
}
