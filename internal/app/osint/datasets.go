// Package osint correlates findings with public-exposure context using
// static reference datasets: sensitive file names, email domain lists,
// admin path segments and cloud provider fingerprints.
package osint

import (
	"bufio"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed datasets
var embeddedDatasets embed.FS

// Dataset file names, resolved relative to the configured dataset FS.
const (
	sensitiveFilesDataset   = "sensitive_files.txt"
	disposableDomainDataset = "disposable_email_domains.txt"
	freeDomainDataset       = "free_email_domains.txt"
	breachedDomainDataset   = "breached_org_domains.txt"
	adminPathsDataset       = "admin_paths.txt"
	cloudIndicatorsDataset  = "cloud_indicators.json"
)

// Datasets holds the loaded reference data. All lookups are lowercase.
type Datasets struct {
	SensitiveFiles    map[string]struct{}
	DisposableDomains map[string]struct{}
	FreeDomains       map[string]struct{}
	BreachedDomains   map[string]struct{}
	AdminPaths        map[string]struct{}
	CloudFingerprints map[string][]string
}

// DefaultDatasets loads the datasets shipped with the binary.
func DefaultDatasets() (*Datasets, error) {
	sub, err := fs.Sub(embeddedDatasets, "datasets")
	if err != nil {
		return nil, fmt.Errorf("embedded datasets: %w", err)
	}
	return LoadDatasets(sub)
}

// LoadDatasets reads every reference dataset from fsys. A missing or
// unreadable dataset is an error; the caller is expected to treat it as
// fatal at startup.
func LoadDatasets(fsys fs.FS) (*Datasets, error) {
	d := &Datasets{}

	var err error
	if d.SensitiveFiles, err = loadSet(fsys, sensitiveFilesDataset); err != nil {
		return nil, err
	}
	if d.DisposableDomains, err = loadSet(fsys, disposableDomainDataset); err != nil {
		return nil, err
	}
	if d.FreeDomains, err = loadSet(fsys, freeDomainDataset); err != nil {
		return nil, err
	}
	if d.BreachedDomains, err = loadSet(fsys, breachedDomainDataset); err != nil {
		return nil, err
	}
	if d.AdminPaths, err = loadSet(fsys, adminPathsDataset); err != nil {
		return nil, err
	}
	if d.CloudFingerprints, err = loadCloudFingerprints(fsys); err != nil {
		return nil, err
	}
	return d, nil
}

func loadSet(fsys fs.FS, name string) (map[string]struct{}, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("missing OSINT dataset %s: %w", name, err)
	}
	defer f.Close()

	set := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" {
			continue
		}
		set[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OSINT dataset %s: %w", name, err)
	}
	return set, nil
}

func loadCloudFingerprints(fsys fs.FS) (map[string][]string, error) {
	raw, err := fs.ReadFile(fsys, cloudIndicatorsDataset)
	if err != nil {
		return nil, fmt.Errorf("missing OSINT dataset %s: %w", cloudIndicatorsDataset, err)
	}
	var fingerprints map[string][]string
	if err := json.Unmarshal(raw, &fingerprints); err != nil {
		return nil, fmt.Errorf("parsing OSINT dataset %s: %w", cloudIndicatorsDataset, err)
	}
	return fingerprints, nil
}
