// Command report_parity replays report requests against the legacy reporting
// service and this API and reports payload differences. Fields that change on
// every call are ignored.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"
)

type target struct {
	Path     string `json:"path"`
	Token    string `json:"token"`
	Critical bool   `json:"critical"`
}

type targetFile struct {
	Targets []target `json:"targets"`
}

type result struct {
	target        target
	legacyStatus  int
	goStatus      int
	diffs         []string
	err           error
	goLatency     time.Duration
	legacyLatency time.Duration
}

func (r result) ok() bool {
	return r.err == nil && r.goStatus == r.legacyStatus && len(r.diffs) == 0
}

// volatile keys are dropped before payloads are compared.
var volatile = map[string]struct{}{
	"generatedAt":        {},
	"processing_time_ms": {},
	"request_id":         {},
	"cache_hit":          {},
}

func main() {
	var (
		goBase      string
		legacyBase  string
		targetsPath string
		token       string
		timeout     time.Duration
	)
	flag.StringVar(&goBase, "go-base", "http://localhost:8080/api/v1", "metrics API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000/api", "legacy reporting base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "report_parity", "targets.json"), "path to JSON targets file")
	flag.StringVar(&token, "token", os.Getenv("PARITY_TOKEN"), "bearer token used when a target has none")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	logr, _ := zap.NewDevelopment()
	defer func() { _ = logr.Sync() }()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		logr.Fatal("failed to load targets", zap.Error(err))
	}

	client := &http.Client{Timeout: timeout}
	breaking, optional := 0, 0
	for _, t := range targets {
		if t.Token == "" {
			t.Token = token
		}
		res := compare(client, goBase, legacyBase, t)
		fields := []zap.Field{
			zap.String("path", t.Path),
			zap.Int("go_status", res.goStatus),
			zap.Int("legacy_status", res.legacyStatus),
			zap.Duration("go_latency", res.goLatency),
			zap.Duration("legacy_latency", res.legacyLatency),
		}
		switch {
		case res.err != nil:
			logr.Error("request failed", append(fields, zap.Error(res.err))...)
		case !res.ok():
			logr.Warn("payload differs", append(fields, zap.Strings("diffs", res.diffs), zap.Bool("critical", t.Critical))...)
		default:
			logr.Info("match", fields...)
			continue
		}
		if t.Critical {
			breaking++
		} else {
			optional++
		}
	}

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return file.Targets, nil
}

func compare(client *http.Client, goBase, legacyBase string, t target) result {
	res := result{target: t}
	goStatus, goBody, goLatency, err := fetch(client, goBase, t)
	if err != nil {
		res.err = fmt.Errorf("go request: %w", err)
		return res
	}
	legacyStatus, legacyBody, legacyLatency, err := fetch(client, legacyBase, t)
	if err != nil {
		res.err = fmt.Errorf("legacy request: %w", err)
		return res
	}
	res.goStatus, res.legacyStatus = goStatus, legacyStatus
	res.goLatency, res.legacyLatency = goLatency, legacyLatency
	res.diffs, res.err = diffPayloads(goBody, legacyBody)
	return res
}

func fetch(client *http.Client, base string, t target) (int, []byte, time.Duration, error) {
	path := t.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, time.Since(start), err
}

// diffPayloads compares the report data of two envelopes and returns the
// JSON paths that differ.
func diffPayloads(goBody, legacyBody []byte) ([]string, error) {
	var a, b interface{}
	if err := json.Unmarshal(goBody, &a); err != nil {
		return nil, fmt.Errorf("decode go body: %w", err)
	}
	if err := json.Unmarshal(legacyBody, &b); err != nil {
		return nil, fmt.Errorf("decode legacy body: %w", err)
	}
	var diffs []string
	walk("$", strip(a), strip(b), &diffs)
	return diffs, nil
}

func strip(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if _, skip := volatile[k]; skip {
				continue
			}
			out[k] = strip(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = strip(inner)
		}
		return out
	}
	return v
}

func walk(path string, a, b interface{}, diffs *[]string) {
	am, aok := a.(map[string]interface{})
	bm, bok := b.(map[string]interface{})
	if aok && bok {
		for k, av := range am {
			bv, present := bm[k]
			if !present {
				*diffs = append(*diffs, path+"."+k+" missing in legacy")
				continue
			}
			walk(path+"."+k, av, bv, diffs)
		}
		for k := range bm {
			if _, present := am[k]; !present {
				*diffs = append(*diffs, path+"."+k+" missing in go")
			}
		}
		return
	}
	as, aok := a.([]interface{})
	bs, bok := b.([]interface{})
	if aok && bok && len(as) == len(bs) {
		for i := range as {
			walk(fmt.Sprintf("%s[%d]", path, i), as[i], bs[i], diffs)
		}
		return
	}
	if !reflect.DeepEqual(a, b) {
		*diffs = append(*diffs, path)
	}
}
