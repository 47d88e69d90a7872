package pipeline

import (
	"context"
	"fmt"
	"strings"

	"koboetl/internal/config"
	"koboetl/internal/datasource"
	"koboetl/internal/datasource/httpds"
	"koboetl/internal/parser/csv"
	"koboetl/internal/schema"
	"koboetl/internal/transformer"
	"koboetl/internal/transformer/builtin"
)

// ProbeBytes is how much of the export Probe downloads.
const ProbeBytes = 64 << 10

// ProbeReport compares an export's header with the target table.
type ProbeReport struct {
	Header  []string
	Dropped []string
	Cleaned []string
	// Missing are target columns the export does not carry; they would load
	// as absent values.
	Missing []string
	// Extra are export columns the load would discard.
	Extra []string
}

// Probe reads the start of the export and checks its header without loading
// anything. Credentials, separator and header collisions fail the same way
// they would in Run.
func Probe(ctx context.Context, cfg config.Pipeline) (*ProbeReport, error) {
	opts, err := NormalizerOptions(cfg.Parser)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var head []byte
	if cfg.Source.Path != "" {
		head, err = datasource.ReadAll(ctx, SourceFor(cfg.Source), 0)
	} else {
		client := httpds.NewClient(httpds.Config{
			Timeout:            cfg.Source.Timeout(),
			InsecureSkipVerify: cfg.Source.InsecureSkipVerify,
		})
		head, err = client.FetchFirstBytes(ctx, cfg.Source.URL,
			httpds.Credentials{Username: cfg.Source.Username, Password: cfg.Source.Password},
			ProbeBytes,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	line, ok := httpds.HeaderLine(head)
	if !ok {
		// A header longer than the probe window, or a file without a newline.
		line = string(head)
	}
	text, err := csv.Decode([]byte(line))
	if err != nil {
		return nil, err
	}
	raw, err := csv.Parse(text+"\n", csv.Options{Comma: opts.Separator, LazyQuotes: opts.LazyQuotes})
	if err != nil {
		return nil, err
	}

	rep := &ProbeReport{Header: raw.Header}
	frame := transformer.NewFrame(raw.Header, nil)
	drop := builtin.DropColumns{
		Names:  opts.DropColumns,
		OnDrop: func(name string) { rep.Dropped = append(rep.Dropped, name) },
	}
	if err := drop.Apply(frame); err != nil {
		return nil, err
	}
	rep.Cleaned, err = transformer.NormalizeHeaders(frame.Names())
	if err != nil {
		return nil, err
	}

	for _, f := range schema.Target.Fields {
		if f.Name == schema.TotalCasualties {
			continue
		}
		if !containsFold(rep.Cleaned, f.Name) {
			rep.Missing = append(rep.Missing, f.Name)
		}
	}
	for _, c := range rep.Cleaned {
		if c == "" {
			continue
		}
		if !containsFold(schema.Target.Names(), c) {
			rep.Extra = append(rep.Extra, c)
		}
	}
	return rep, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
