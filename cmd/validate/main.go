// Command validate checks archived raw Weatherbit responses offline. It runs
// every file through the same decode, quality gate and transform steps as the
// ETL job and reports what a run would load, reject and warn about.
//
// Usage:
//
//	go run ./cmd/validate -dir logs
//	go run ./cmd/validate -strict logs/Raleigh_20240301_060000.json
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/weather-forecast-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// archive is one decoded raw response file.
type archive struct {
	path string
	resp domain.ForecastResponse
}

func main() {
	dir := flag.String("dir", "", "directory of archived raw responses (*.json)")
	strict := flag.Bool("strict", false, "treat data-quality warnings as failures")
	flag.Parse()

	paths := flag.Args()
	if *dir != "" {
		matches, err := filepath.Glob(filepath.Join(*dir, "*.json"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: list %s: %v\n", *dir, err)
			os.Exit(1)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	sort.Strings(paths)

	os.Exit(run(paths, *strict))
}

func run(paths []string, strict bool) int {
	fmt.Println("=== Weather Forecast Archive Validation ===")
	fmt.Println()

	decode, archives := validateDecode(paths)
	phases := []*phase{
		decode,
		validateQualityGate(archives, strict),
		validateDateCoverage(archives),
		validateStorageFit(archives),
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Files: %d read, %d decoded, %d forecast days\n", len(paths), len(archives), countDays(archives))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func countDays(archives []archive) int {
	n := 0
	for _, a := range archives {
		n += len(a.resp.Data)
	}
	return n
}

// ── Phase 1: Decode ──
// Every file must be a forecast response with at least one day.

func validateDecode(paths []string) (*phase, []archive) {
	p := &phase{name: "Phase 1: Decode"}
	var archives []archive

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			p.errorf("%s: %v", path, err)
			continue
		}
		resp, err := domain.DecodeForecastResponse(data)
		if err != nil {
			p.errorf("%s: %v", path, err)
			continue
		}
		if len(resp.Data) == 0 {
			p.errorf("%s: response has no forecast days", path)
		}
		archives = append(archives, archive{path: path, resp: resp})
	}
	return p, archives
}

// ── Phase 2: Quality Gate ──
// Rejected days always fail; warnings fail only in strict mode.

func validateQualityGate(archives []archive, strict bool) *phase {
	p := &phase{name: "Phase 2: Quality Gate"}

	var accepted, rejected, warned int
	for _, a := range archives {
		for i, day := range a.resp.Data {
			outcome := domain.ValidateForecastDay(day)
			if !outcome.Accepted {
				rejected++
				p.errorf("%s day %d: rejected: %s", filepath.Base(a.path), i, outcome.Warnings[0])
				continue
			}
			accepted++
			if len(outcome.Warnings) == 0 {
				continue
			}
			warned++
			if strict {
				for _, w := range outcome.Warnings {
					p.errorf("%s %s: %s", filepath.Base(a.path), day.Field("datetime").String(), w)
				}
			}
		}
	}
	fmt.Printf("Quality gate: %d accepted (%d with warnings), %d rejected\n", accepted, warned, rejected)
	return p
}

// ── Phase 3: Date Coverage ──
// Dates within one response must be unique and ascending; a duplicate would
// silently overwrite an earlier day on upsert.

func validateDateCoverage(archives []archive) *phase {
	p := &phase{name: "Phase 3: Date Coverage"}

	for _, a := range archives {
		seen := make(map[string]bool, len(a.resp.Data))
		prev := ""
		for _, day := range a.resp.Data {
			date := day.Field("datetime").String()
			if !domain.IsValidDate(date) {
				continue
			}
			if seen[date] {
				p.errorf("%s: duplicate forecast date %s", filepath.Base(a.path), date)
			}
			if prev != "" && date < prev {
				p.errorf("%s: forecast date %s follows %s", filepath.Base(a.path), date, prev)
			}
			seen[date] = true
			prev = date
		}
	}
	return p
}

// ── Phase 4: Storage Fit ──
// An accepted day whose forecast_date is not a calendar date cannot be stored
// in a DATE column and would roll back the whole Postgres run.

func validateStorageFit(archives []archive) *phase {
	p := &phase{name: "Phase 4: Storage Fit"}

	for _, a := range archives {
		for i, day := range a.resp.Data {
			if !domain.ValidateForecastDay(day).Accepted {
				continue
			}
			rec := domain.TransformForecastDay(day)
			if !domain.IsValidDate(rec.ForecastDate) {
				p.errorf("%s day %d: forecast_date %q is not a calendar date; the load would roll back",
					filepath.Base(a.path), i, rec.ForecastDate)
			}
		}
	}
	return p
}
