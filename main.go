// fileferry moves files and directories between hosts on a LAN, with
// adaptive chunking, optional LZ4 compression, resume, streaming
// archive extraction, and a choice of four transports.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"fileferry/internal/engine"
	"fileferry/internal/extract"
	"fileferry/internal/receiver"
	"fileferry/internal/scanner"
	"fileferry/internal/sender"
	"fileferry/internal/speedtest"
	"fileferry/internal/transport"
)

const defaultPort = 9527

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "send":
		err = runSend(os.Args[2:])
	case "receive", "recv":
		err = runReceive(os.Args[2:])
	case "scan":
		err = runScan(os.Args[2:])
	case "speedtest":
		err = runSpeedTest(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "fileferry: unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "fileferry: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`fileferry - adaptive LAN file transfer

Usage:
  fileferry send --targets A[,B...] [--port N] [--compress] [--flat] [--transport tcp|udp|quic|kcp] <paths...>
  fileferry receive [--port N] [--dir PATH] [--extract tar,tar.gz,tar.lz4,tar.zst,lz4,zip] [--transport tcp|udp|quic|kcp]
  fileferry scan [--port N] [--subnets A.B.C[,...]]
  fileferry speedtest [--size MB] [--transport tcp|udp|quic|kcp] <target>`)
}

func parseTransport(s string) transport.Kind {
	if s == "" {
		return transport.TCP
	}
	kind, err := transport.ParseKind(s)
	if err != nil {
		return transport.TCP
	}
	return kind
}

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	targetsFlag := fs.String("targets", "", "comma-separated list of target host[:port]")
	port := fs.Int("port", defaultPort, "port to connect to when a target omits one")
	compress := fs.Bool("compress", false, "LZ4-compress chunks before sending")
	flat := fs.Bool("flat", false, "send directory contents without preserving their folder structure")
	noResume := fs.Bool("no-resume", false, "disable resume negotiation")
	transportFlag := fs.String("transport", "tcp", "transport: tcp, udp, quic, kcp")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if *targetsFlag == "" || len(paths) == 0 {
		return fmt.Errorf("usage: fileferry send --targets A[,B...] [options] <paths...>")
	}

	addrs := expandTargets(strings.Split(*targetsFlag, ","), *port)

	files, err := sender.Plan(paths, *flat)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found under the given paths")
	}

	sink := engine.NewSink(256)
	stop := engine.NewStopToken()
	go printEvents(sink)

	opts := sender.Options{
		Compress:     *compress,
		EnableResume: !*noResume,
		Transport:    parseTransport(*transportFlag),
	}

	sender.SendToTargets(context.Background(), addrs, files, opts, sink, stop)
	close(sink)
	return nil
}

func expandTargets(raw []string, port int) []string {
	addrs := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !strings.Contains(t, ":") {
			t = fmt.Sprintf("%s:%d", t, port)
		}
		addrs = append(addrs, t)
	}
	return addrs
}

func runReceive(args []string) error {
	fs := flag.NewFlagSet("receive", flag.ExitOnError)
	port := fs.Int("port", defaultPort, "port to listen on")
	dir := fs.String("dir", ".", "directory to save incoming files under")
	extractFlag := fs.String("extract", "", "comma-separated archive types to auto-extract: tar,tar.gz,tar.lz4,tar.zst,lz4,zip")
	noResume := fs.Bool("no-resume", false, "disable resume negotiation")
	transportFlag := fs.String("transport", "tcp", "transport: tcp, udp, quic, kcp")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dialer, err := transport.New(parseTransport(*transportFlag))
	if err != nil {
		return err
	}
	ln, err := dialer.Bind(*port)
	if err != nil {
		return fmt.Errorf("fileferry: bind port %d: %w", *port, err)
	}
	defer ln.Close()

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		return err
	}

	opts := receiver.Options{
		SaveDir:      *dir,
		Extract:      parseExtractFlags(*extractFlag),
		EnableResume: !*noResume,
	}

	sink := engine.NewSink(256)
	stop := engine.NewStopToken()
	go printEvents(sink)

	fmt.Printf("listening on port %d (%s)\n", *port, *transportFlag)

	for {
		stream, peer, err := ln.AcceptTimeout(context.Background(), 500*time.Millisecond)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fileferry: accept: %v\n", err)
			time.Sleep(time.Second)
			continue
		}
		if stream == nil {
			continue
		}
		go func() {
			if err := receiver.HandleConnection(stream, peer, opts, sink, stop); err != nil {
				fmt.Fprintf(os.Stderr, "fileferry: connection from %s: %v\n", peer, err)
			}
		}()
	}
}

func parseExtractFlags(s string) extract.Options {
	var opts extract.Options
	for _, kind := range strings.Split(s, ",") {
		switch strings.TrimSpace(strings.ToLower(kind)) {
		case "tar", "tar.gz", "tgz":
			opts.Tar = true
		case "tar.lz4", "tlz4":
			opts.TarLz4 = true
		case "tar.zst", "tzst":
			opts.TarZst = true
		case "lz4":
			opts.Lz4 = true
		case "zip":
			opts.Zip = true
		}
	}
	return opts
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	port := fs.Int("port", defaultPort, "port to probe")
	subnetsFlag := fs.String("subnets", "", "comma-separated subnets to scan (A.B.C, A.B.C.D, or A.B.C.D/nn); defaults to the local /24")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var subnets []scanner.Subnet
	if *subnetsFlag != "" {
		subnets = scanner.ParseSubnets(*subnetsFlag)
	} else {
		local, err := localSubnet()
		if err != nil {
			return err
		}
		subnets = []scanner.Subnet{local}
	}
	if len(subnets) == 0 {
		return fmt.Errorf("no valid subnets to scan")
	}

	sink := engine.NewSink(256)
	stop := engine.NewStopToken()
	go printEvents(sink)

	found, err := scanner.Scan(subnets, *port, sink, stop)
	close(sink)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Println("no servers found")
	}
	return nil
}

func runSpeedTest(args []string) error {
	fs := flag.NewFlagSet("speedtest", flag.ExitOnError)
	sizeMB := fs.Int("size", 10, "payload size in MB to move in each direction")
	transportFlag := fs.String("transport", "tcp", "transport: tcp, udp, quic, kcp")
	if err := fs.Parse(args); err != nil {
		return err
	}
	targets := fs.Args()
	if len(targets) != 1 {
		return fmt.Errorf("usage: fileferry speedtest [options] <target>")
	}
	target := targets[0]
	if !strings.Contains(target, ":") {
		target = fmt.Sprintf("%s:%d", target, defaultPort)
	}

	dialer, err := transport.New(parseTransport(*transportFlag))
	if err != nil {
		return err
	}
	stream, err := dialer.Connect(context.Background(), target)
	if err != nil {
		return err
	}
	defer stream.Shutdown()

	sink := engine.NewSink(64)
	stop := engine.NewStopToken()
	go printEvents(sink)

	result, err := speedtest.Run(stream, target, uint64(*sizeMB)*1024*1024, sink, stop)
	close(sink)
	if err != nil {
		return err
	}
	fmt.Printf("upload: %.1f MB/s | download: %.1f MB/s | ping: %.1f ms\n", result.UploadMBps, result.DownloadMBps, result.RTTMillis)
	return nil
}

// printEvents is the default telemetry consumer: a plain-text progress
// line per event, written to stdout. A future GUI or TUI front end
// would replace this with its own consumer of the same Sink.
func printEvents(sink engine.Sink) {
	for e := range sink {
		switch e.Kind {
		case engine.EventConnected:
			fmt.Printf("[%s] connected\n", e.Target)
		case engine.EventFileStarted:
			fmt.Printf("[%s] sending %s\n", e.Target, e.File)
		case engine.EventFileResumed:
			fmt.Printf("[%s] resuming %s at offset %d\n", e.Target, e.File, e.Offset)
		case engine.EventFileSkipped:
			fmt.Printf("[%s] skipping %s (already up to date)\n", e.Target, e.File)
		case engine.EventFileCompleted:
			fmt.Printf("[%s] done: %s\n", e.Target, e.File)
		case engine.EventFileError:
			fmt.Fprintf(os.Stderr, "[%s] error on %s: %s\n", e.Target, e.File, e.Reason)
		case engine.EventTargetCompleted:
			fmt.Printf("[%s] all files sent\n", e.Target)
		case engine.EventConnectionError:
			fmt.Fprintf(os.Stderr, "[%s] connection error: %s\n", e.Target, e.Reason)
		case engine.EventAllCompleted:
			fmt.Println("all targets complete")
		case engine.EventFileReceived:
			fmt.Printf("[%s] received %s (%d bytes)\n", e.Target, e.File, e.Transferred)
		case engine.EventExtractionStarted:
			fmt.Printf("[%s] extracting %s\n", e.Target, e.File)
		case engine.EventExtractionCompleted:
			fmt.Printf("[%s] extracted %s: %d files, %d bytes\n", e.Target, e.File, e.FilesCount, e.TotalBytes)
		case engine.EventExtractionError:
			fmt.Fprintf(os.Stderr, "[%s] extraction failed for %s: %s\n", e.Target, e.File, e.Reason)
		case engine.EventServerFound:
			fmt.Printf("found server: %s\n", e.Target)
		case engine.EventScanProgress:
			fmt.Printf("scanning %s (%d%%)\n", e.Reason, e.Percent)
		case engine.EventScanCompleted:
			fmt.Printf("scan complete: %d server(s) found\n", e.FilesCount)
		case engine.EventSpeedTestStarted:
			fmt.Printf("[%s] speed test started\n", e.Target)
		case engine.EventSpeedTestProgress:
			fmt.Printf("[%s] %s %d%%\n", e.Target, e.Reason, e.Percent)
		case engine.EventSpeedTestCompleted:
			fmt.Printf("[%s] upload %.1f MB/s download %.1f MB/s ping %.1f ms\n", e.Target, e.UploadMBps, e.DownloadMBps, e.RTTMillis)
		case engine.EventSpeedTestError:
			fmt.Fprintf(os.Stderr, "[%s] speed test failed: %s\n", e.Target, e.Reason)
		case engine.EventCancelled:
			fmt.Fprintf(os.Stderr, "[%s] cancelled: %s\n", e.Target, e.Reason)
		}
	}
}

func localSubnet() (scanner.Subnet, error) {
	addrs, err := interfaceAddrs()
	if err != nil {
		return scanner.Subnet{}, err
	}
	for _, a := range addrs {
		if subnet, ok := scanner.ParseSubnet(a); ok {
			return subnet, nil
		}
	}
	return scanner.Subnet{}, fmt.Errorf("could not determine a local IPv4 subnet; pass --subnets explicitly")
}
