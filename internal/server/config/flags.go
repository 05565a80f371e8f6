package config

import (
	"flag"

	"github.com/dmitrijs2005/blogd/internal/flagx"
)

// parseFlags overlays command-line flags onto config.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g. ":3000")
//	-g string     gRPC bind address (e.g. ":50051")
//	-d string     PostgreSQL DSN; empty runs on the in-memory store
//	-s string     token signing secret (at least 32 bytes)
//	-t duration   token lifetime (e.g. "24h")
//	-r float      rate limit, requests per second per caller
//	-b int        rate limit burst
//	-l string     log file (rotated); stdout only when empty
//	-cors string  comma-separated allowed CORS origins
//
// Only these flags are taken from args, so other flag sets (-c) can share
// the command line.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-t", "-r", "-b", "-l", "-cors"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port to run server")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	fs.DurationVar(&config.TokenLifetime, "t", config.TokenLifetime, "token lifetime")
	fs.Float64Var(&config.RateLimitPerSecond, "r", config.RateLimitPerSecond, "rate limit (requests per second)")
	fs.IntVar(&config.RateLimitBurst, "b", config.RateLimitBurst, "rate limit burst")
	fs.StringVar(&config.LogFile, "l", config.LogFile, "log file")
	fs.Func("cors", "comma-separated allowed CORS origins", func(v string) error {
		config.CORSAllowedOrigins = splitList(v)
		return nil
	})

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
