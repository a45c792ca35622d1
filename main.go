package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"

	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/compare"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/editor"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/export"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/image"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/ledger"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/models"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/reader"
	"github.com/zewy9910-ux/Z22SE-Tuner/pkg/scanner"
)

func main() {
	filename := flag.String("file", "", "Calibration .bin file to load (512 KB)")
	profileArg := flag.String("profile", "", "Comma-separated profiles to apply: stage1, stage1+, stage2, popbang, burble")
	listProfiles := flag.Bool("profiles", false, "List built-in tuning profiles")
	revLimit := flag.Int("rev-limit", 0, "Set a custom fuel-cut RPM (0 keeps the profile's value)")
	outFile := flag.String("out", "", "Output path (default: overwrite input after backup)")
	reportPath := flag.String("report", "", "Write the change log as CSV to this path")
	exportDir := flag.String("export", "", "Dump all catalog tables as CSV into this directory")
	compareWith := flag.String("compare", "", "Second .bin file to compare against")
	scan := flag.Bool("scan", false, "Scan the image for the rev-limit location")
	dryRun := flag.Bool("dry-run", false, "Apply in memory and report, never write files")
	force := flag.Bool("force", false, "Re-apply a profile already applied this session")
	noBackup := flag.Bool("no-backup", false, "Skip the timestamped backup before writing")
	flag.Parse()

	if *listProfiles {
		showProfiles()
		return
	}

	if *filename == "" {
		fmt.Println("Usage: z22se-tuner -file <calibration.bin> [-profile stage1] [-rev-limit 6800] [-dry-run]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	data, err := os.ReadFile(*filename)
	if err != nil {
		pterm.Error.Printf("Cannot read %s: %v\n", *filename, err)
		os.Exit(1)
	}

	as, err := image.Load(data)
	if err != nil {
		pterm.Error.Printf("Refusing to load: %v\n", err)
		os.Exit(1)
	}

	catalog := models.Default()
	led := ledger.New(as)

	id, idErr := reader.Identify(as, catalog)
	showIdentity(*filename, id, idErr)

	if id.RevLimitEngage < 1000 || id.RevLimitEngage > 9000 {
		if hit, ok := scanner.ScanRevLimit(led.Pristine()); ok {
			pterm.Warning.Printf("Catalog rev-limit value implausible; scan found %d RPM at 0x%06X\n", hit.RPM, hit.Offset)
		}
	}

	if *scan {
		scanner.Report(as.Bytes())
	}

	if *compareWith != "" {
		other, err := os.ReadFile(*compareWith)
		if err != nil {
			pterm.Error.Printf("Cannot read %s: %v\n", *compareWith, err)
			os.Exit(1)
		}
		regions, err := compare.Diff(as.Bytes(), other, catalog)
		if err != nil {
			pterm.Error.Printf("Compare failed: %v\n", err)
			os.Exit(1)
		}
		compare.Report(*filename, *compareWith, as.Bytes(), other, regions)
	}

	if *exportDir != "" {
		if err := export.ExportTables(as, catalog, *exportDir); err != nil {
			pterm.Error.Printf("Export failed: %v\n", err)
			os.Exit(1)
		}
	}

	profiles, err := selectProfiles(*profileArg, *revLimit)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	if len(profiles) == 0 {
		return
	}

	applyProfiles(as, catalog, led, profiles, *force)

	sum := led.Summarize()
	showSummary(sum, led)

	if *reportPath != "" {
		if err := export.WriteChangeReport(*reportPath, id, led); err != nil {
			pterm.Error.Printf("Report failed: %v\n", err)
			os.Exit(1)
		}
		pterm.Success.Printf("Change report written to %s\n", *reportPath)
	}

	if *dryRun {
		pterm.Warning.Println("DRY RUN - no files written")
		return
	}
	if sum.TotalChangedBytes == 0 {
		pterm.Info.Println("No bytes changed; nothing to write")
		return
	}

	target := *outFile
	if target == "" {
		target = *filename
	}
	if !*noBackup {
		backup, err := editor.CreateBackup(*filename)
		if err != nil {
			pterm.Error.Printf("Failed to create backup: %v\n", err)
			os.Exit(1)
		}
		pterm.Success.Printf("Backup created: %s\n", backup)
	}
	if err := os.WriteFile(target, as.Bytes(), 0644); err != nil {
		pterm.Error.Printf("Failed to write %s: %v\n", target, err)
		os.Exit(1)
	}
	pterm.Success.Printf("Tuned calibration written to %s\n", target)
}

// selectProfiles resolves the -profile list and the optional -rev-limit
// override into an ordered profile slice.
func selectProfiles(arg string, revLimit int) ([]models.TuningProfile, error) {
	var profiles []models.TuningProfile
	if arg != "" {
		for _, name := range strings.Split(arg, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			p, ok := models.ProfileByName(name)
			if !ok {
				return nil, fmt.Errorf("unknown profile %q (see -profiles)", name)
			}
			profiles = append(profiles, p)
		}
	}
	if revLimit != 0 {
		if revLimit < 3000 || revLimit > 7500 {
			return nil, fmt.Errorf("rev limit %d outside safe range 3000-7500", revLimit)
		}
		profiles = append(profiles, models.RevLimitProfile(revLimit))
	}
	return profiles, nil
}

func applyProfiles(as *image.AddressSpace, catalog *models.Catalog, led *ledger.Ledger, profiles []models.TuningProfile, force bool) {
	applier := editor.NewApplier(catalog)
	for _, p := range profiles {
		if led.Applied(p.Name) && !force {
			pterm.Warning.Printf("Profile %q already applied this session; skipping (use -force to compound)\n", p.Name)
			continue
		}
		records, err := applier.Apply(as, p)
		if err != nil {
			pterm.Error.Printf("Apply %q failed, image unchanged: %v\n", p.Name, err)
			continue
		}
		led.Record(records)
		led.MarkApplied(p.Name)
		pterm.Success.Printf("Applied %s: %d bytes changed\n", p.Name, len(records))
	}
}

func showProfiles() {
	tableData := pterm.TableData{{"Profile", "Summary"}}
	for _, p := range models.Profiles {
		tableData = append(tableData, []string{p.Name, p.Summary})
	}
	pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}

func showIdentity(filename string, id models.Identity, idErr error) {
	pterm.DefaultHeader.WithFullWidth().Println("Z22SE Calibration Tuner")

	pin := id.PIN
	if idErr != nil {
		if errors.Is(idErr, reader.ErrInvalidBCD) {
			pin = "(invalid BCD)"
			pterm.Warning.Printf("PIN not decodable: %v\n", idErr)
		} else {
			pterm.Error.Printf("Identify failed: %v\n", idErr)
			return
		}
	}

	tableData := pterm.TableData{
		{"File", filename},
		{"Part number", id.PartNumber},
		{"Calibration", id.CalibrationID},
		{"PIN", pin},
		{"Rev limit", fmt.Sprintf("%d RPM (resume %d)", id.RevLimitEngage, id.RevLimitHysteresis)},
	}
	pterm.DefaultTable.WithData(tableData).Render()
}

func showSummary(sum ledger.Summary, led *ledger.Ledger) {
	if sum.TotalChangedBytes == 0 {
		return
	}
	pterm.DefaultSection.Println("Change Summary")
	pterm.Info.Printf("Session %s\n", led.Session())
	pterm.Info.Printf("Profiles: %s\n", strings.Join(led.AppliedProfiles(), ", "))

	tableData := pterm.TableData{{"Table", "Changed bytes"}}
	for _, name := range sum.Tables() {
		tableData = append(tableData, []string{name, fmt.Sprintf("%d", sum.PerTable[name])})
	}
	tableData = append(tableData, []string{"Total", fmt.Sprintf("%d (%d regions)", sum.TotalChangedBytes, sum.ChangedRegions)})
	pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}
