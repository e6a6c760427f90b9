// Command cgroupcored exercises the resource-handler core from the
// command line, in the style of the teacher's cmd/spocker entry point:
// a small flag-based CLI over the library, not a daemon.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/elispeigel/cgroupcore/containerapi"
	"github.com/elispeigel/cgroupcore/machine"
	"github.com/elispeigel/cgroupcore/resource"
	"github.com/elispeigel/cgroupcore/status"
	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-root DIR] COMMAND /container/name [memory-limit-bytes]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands: create, get, stats, destroy")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	root := flag.String("root", "/", "filesystem namespace root for the Filesystem resource")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cgroupcored: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(1)
	}

	registry, dispatcher, err := machine.Build(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cgroupcored: %v\n", err)
		os.Exit(1)
	}
	defer dispatcher.Close()

	if err := registry.InitMachine(&containerapi.InitSpec{}); err != nil {
		fmt.Fprintf(os.Stderr, "cgroupcored: InitMachine failed: %v\n", err)
		os.Exit(1)
	}

	command := args[0]
	name := containerapi.ContainerName(args[1])

	if err := run(registry, command, name, args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "cgroupcored: %v\n", err)
		if s, ok := err.(*status.Status); ok && s.Code == status.NotFound {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(registry *machine.Registry, command string, name containerapi.ContainerName, rest []string) error {
	switch command {
	case "create":
		spec := &containerapi.ContainerSpec{}
		if len(rest) > 0 {
			limit, err := parseBytes(rest[0])
			if err != nil {
				return err
			}
			spec.Memory = &containerapi.MemorySpec{LimitBytes: &limit}
		}
		if _, err := registry.Create(resource.Memory, name, spec); err != nil {
			return err
		}
		fmt.Printf("created memory handler for %s\n", name)
		return nil
	case "get":
		if _, err := registry.Get(resource.Memory, name); err != nil {
			return err
		}
		fmt.Printf("%s exists\n", name)
		return nil
	case "stats":
		h, err := registry.Get(resource.Memory, name)
		if err != nil {
			return err
		}
		var out containerapi.ContainerStats
		if err := h.Stats(containerapi.Full, &out); err != nil {
			return err
		}
		fmt.Printf("usage=%d usage_ok=%v swap=%d swap_ok=%v\n",
			out.Memory.UsageBytes, out.Memory.UsageBytesOk, out.Memory.SwapUsageBytes, out.Memory.SwapUsageBytesOk)
		return nil
	case "destroy":
		h, err := registry.Get(resource.Memory, name)
		if err != nil {
			return err
		}
		if err := h.Destroy(); err != nil {
			return err
		}
		fmt.Printf("destroyed %s\n", name)
		return nil
	default:
		usage()
		return status.New(status.InvalidArgument, "unknown command %s", command)
	}
}

func parseBytes(s string) (int64, error) {
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, status.Wrap(status.InvalidArgument, err, "invalid byte count "+s)
	}
	return n, nil
}
