// Command qickctl calls the operations a board exposes through qickd.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/qick-go/qick"
	"github.com/qick-go/qick/internal/config"
	"github.com/qick-go/qick/internal/remote"
	"github.com/qick-go/qick/internal/soc"
	"github.com/qick-go/qick/internal/soc/hardware"
	"github.com/qick-go/qick/internal/soc/standin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var (
		addr     = flag.String("addr", defaultURL(cfg.Remote.Addr), "qickd base URL")
		h2c      = flag.Bool("h2c", cfg.Remote.H2C, "Use HTTP/2 without TLS")
		secret   = flag.String("secret", cfg.Remote.Secret, "Shared secret for bearer tokens")
		tokenTTL = flag.Duration("token-ttl", cfg.Remote.TokenTTL(), "Bearer token lifetime")
		gen      = flag.Int("gen", -1, "Generator channel")
		ro       = flag.Int("ro", -1, "Readout channel")
		local    = flag.Bool("local", false, "Fetch get_cfg once and convert locally")
		timeout  = flag.Duration("timeout", 10*time.Second, "Request timeout")
		version  = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		fmt.Println("qickctl", qick.Version)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] get_cfg | adcfreq <MHz> | us2cycles <us>... | cycles2us <cycles>...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	var chOpts []soc.ChannelOption
	if *gen >= 0 {
		chOpts = append(chOpts, soc.WithGen(*gen))
	}
	if *ro >= 0 {
		chOpts = append(chOpts, soc.WithReadout(*ro))
	}

	client, err := remote.NewClient(*addr, remote.ClientOptions{
		H2C:      *h2c,
		Secret:   *secret,
		Subject:  "qickctl",
		TokenTTL: *tokenTTL,
		Timeout:  *timeout,
	})
	if err != nil {
		log.Fatalf("client: %v", err)
	}
	ctx := context.Background()

	result, err := run(ctx, client, *local, args[0], args[1:], chOpts)
	if err != nil {
		log.Fatalf("%s failed: %v", args[0], err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("encode result: %v", err)
	}
}

func run(ctx context.Context, client *remote.Client, local bool, op string, args []string, chOpts []soc.ChannelOption) (interface{}, error) {
	if op == soc.OpGetConfig {
		return client.GetConfig(ctx)
	}

	values, err := parseFloats(args)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("at least one value required")
	}

	if local {
		snap, err := client.GetConfig(ctx)
		if err != nil {
			return nil, err
		}
		cfg, err := localConfig(snap, chOpts)
		if err != nil {
			return nil, err
		}
		return convertLocal(cfg, op, values, chOpts)
	}

	switch op {
	case soc.OpAdjustFreq:
		return client.AdjustFrequency(ctx, values[0], chOpts...)
	case soc.OpUsToCycles:
		if len(values) == 1 {
			return client.UsToCycles(ctx, values[0], chOpts...)
		}
		return client.UsToCyclesBulk(ctx, values, chOpts...)
	case soc.OpCyclesToUs:
		cycles := toInts(values)
		if len(cycles) == 1 {
			return client.CyclesToUs(ctx, cycles[0], chOpts...)
		}
		return client.CyclesToUsBulk(ctx, cycles, chOpts...)
	}
	return nil, fmt.Errorf("unknown operation %q", op)
}

// defaultURL turns a listen address such as ":8000" into a loopback URL.
func defaultURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://127.0.0.1:8000"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// localConfig builds the conversion view of a fetched snapshot. A board
// without hardware support answers an empty snapshot; its stand-in view is
// used then.
func localConfig(snap soc.Snapshot, chOpts []soc.ChannelOption) (soc.SoC, error) {
	if len(snap) == 0 {
		return standin.NewConfig(snap), nil
	}
	cfg, err := hardware.NewConfig(snap)
	if err != nil {
		return nil, err
	}
	if err := cfg.CheckChannels(soc.ResolveChannels(chOpts...)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func convertLocal(s soc.SoC, op string, values []float64, chOpts []soc.ChannelOption) (interface{}, error) {
	switch op {
	case soc.OpAdjustFreq:
		return s.AdjustFrequency(values[0], chOpts...), nil
	case soc.OpUsToCycles:
		if len(values) == 1 {
			return s.UsToCycles(values[0], chOpts...), nil
		}
		return s.UsToCyclesBulk(values, chOpts...), nil
	case soc.OpCyclesToUs:
		cycles := toInts(values)
		if len(cycles) == 1 {
			return s.CyclesToUs(cycles[0], chOpts...), nil
		}
		return s.CyclesToUsBulk(cycles, chOpts...), nil
	}
	return nil, fmt.Errorf("unknown operation %q", op)
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", a, err)
		}
		out[i] = v
	}
	return out, nil
}

func toInts(vs []float64) []int {
	out := make([]int, len(vs))
	for i, v := range vs {
		out[i] = int(v)
	}
	return out
}
