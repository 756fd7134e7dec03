package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fieldline/modbus"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	addr := flag.String("addr", "", "server address (overrides config)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	pool, err := modbus.NewPool(cfg.Addr, modbus.PoolConfig{
		MaxSize:             cfg.PoolSize,
		HealthCheckInterval: cfg.HealthCheckInterval,
		HealthCheckUnitID:   cfg.UnitID,
		Logger:              &logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	fmt.Printf("Modbus CLI Tool - %s (unit %d)\n", cfg.Addr, cfg.UnitID)
	fmt.Println("Commands: rc <addr> <n>, rdi <addr> <n>, rhr <addr> <n>, rir <addr> <n>,")
	fmt.Println("          wc <addr> on|off, wr <addr> <value>, wmr <addr> <v1> [v2 ...],")
	fmt.Println("          ping, stats, quit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		parts := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(parts) == 0 {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		run(ctx, pool, cfg.UnitID, parts)
		cancel()

		if strings.ToLower(parts[0]) == "quit" {
			return
		}
	}
}

func run(ctx context.Context, pool *modbus.Pool, unitID byte, parts []string) {
	switch strings.ToLower(parts[0]) {
	case "rc":
		readBits(ctx, pool.ReadCoils, unitID, parts)
	case "rdi":
		readBits(ctx, pool.ReadDiscreteInputs, unitID, parts)
	case "rhr":
		readRegisters(ctx, pool.ReadHoldingRegisters, unitID, parts)
	case "rir":
		readRegisters(ctx, pool.ReadInputRegisters, unitID, parts)

	case "wc":
		if len(parts) != 3 || (parts[2] != "on" && parts[2] != "off") {
			fmt.Println("Usage: wc <addr> on|off")
			return
		}
		addr, ok := parseUint16(parts[1])
		if !ok {
			return
		}
		report(pool.WriteSingleCoil(ctx, unitID, addr, parts[2] == "on"))

	case "wr":
		if len(parts) != 3 {
			fmt.Println("Usage: wr <addr> <value>")
			return
		}
		addr, ok1 := parseUint16(parts[1])
		value, ok2 := parseUint16(parts[2])
		if !ok1 || !ok2 {
			return
		}
		report(pool.WriteSingleRegister(ctx, unitID, addr, value))

	case "wmr":
		if len(parts) < 3 {
			fmt.Println("Usage: wmr <addr> <v1> [v2 ...]")
			return
		}
		addr, ok := parseUint16(parts[1])
		if !ok {
			return
		}
		values := make([]uint16, 0, len(parts)-2)
		for _, s := range parts[2:] {
			v, ok := parseUint16(s)
			if !ok {
				return
			}
			values = append(values, v)
		}
		report(pool.WriteMultipleRegisters(ctx, unitID, addr, values))

	case "ping":
		report(pool.Ping(ctx, unitID))

	case "stats":
		s := pool.Stats()
		fmt.Printf("conns: total=%d idle=%d active=%d acquires=%d waits=%d canceled=%d\n",
			s.TotalConns, s.IdleConns, s.ActiveConns,
			s.AcquireCount, s.EmptyAcquireCount, s.CanceledAcquires)
		if state, ok := pool.BreakerState(); ok {
			fmt.Printf("breaker: %s\n", state)
		}

	case "quit":

	default:
		fmt.Printf("unknown command: %s\n", parts[0])
	}
}

type bitReader func(ctx context.Context, unitID byte, addr, quantity uint16) ([]bool, error)

func readBits(ctx context.Context, read bitReader, unitID byte, parts []string) {
	if len(parts) != 3 {
		fmt.Printf("Usage: %s <addr> <n>\n", parts[0])
		return
	}
	addr, ok1 := parseUint16(parts[1])
	quantity, ok2 := parseUint16(parts[2])
	if !ok1 || !ok2 {
		return
	}
	bits, err := read(ctx, unitID, addr, quantity)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for i, b := range bits {
		v := 0
		if b {
			v = 1
		}
		fmt.Printf("%d: %d\n", int(addr)+i, v)
	}
}

type registerReader func(ctx context.Context, unitID byte, addr, quantity uint16) ([]uint16, error)

func readRegisters(ctx context.Context, read registerReader, unitID byte, parts []string) {
	if len(parts) != 3 {
		fmt.Printf("Usage: %s <addr> <n>\n", parts[0])
		return
	}
	addr, ok1 := parseUint16(parts[1])
	quantity, ok2 := parseUint16(parts[2])
	if !ok1 || !ok2 {
		return
	}
	values, err := read(ctx, unitID, addr, quantity)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for i, v := range values {
		fmt.Printf("%d: %d (0x%04X)\n", int(addr)+i, v, v)
	}
}

func parseUint16(s string) (uint16, bool) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		fmt.Printf("invalid number: %s\n", s)
		return 0, false
	}
	return uint16(v), true
}

func report(err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("OK")
}
