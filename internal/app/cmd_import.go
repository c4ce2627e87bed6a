package app

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sevaflow/internal/domain"
)

var importFlags struct {
	reporterID  string
	concurrency int
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Register one grievance per line from a file or stdin",
		Long: "Blank lines and lines starting with # are skipped. Each remaining line is\n" +
			"registered independently; a failed line is reported and does not stop the others.",
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
	f := cmd.Flags()
	f.StringVar(&importFlags.reporterID, "reporter-id", "", "Reporter id recorded on every imported grievance")
	f.IntVar(&importFlags.concurrency, "concurrency", 4, "Registrations in flight at once")
	return cmd
}

func readGrievanceLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

func runImport(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()
		in = f
	}
	lines, err := readGrievanceLines(in)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	limit := importFlags.concurrency
	if limit < 1 {
		limit = 1
	}
	reporter := domain.Reporter{ID: importFlags.reporterID}

	var mu sync.Mutex
	refs := make([]string, len(lines))
	var failed int

	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(limit)
	for i, line := range lines {
		g.Go(func() error {
			gr, err := rt.svc.Register(gctx, line, reporter)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				log.Printf("import line=%d error: %v", i+1, err)
				return nil
			}
			refs[i] = gr.RefID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, ref := range refs {
		if ref != "" {
			fmt.Fprintf(out, "%s\t%s\n", ref, truncateLine(lines[i], 60))
		}
	}
	fmt.Fprintf(out, "Imported %d of %d grievances\n", len(lines)-failed, len(lines))
	if failed > 0 {
		return fmt.Errorf("%d grievances failed to import", failed)
	}
	return nil
}

func truncateLine(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
