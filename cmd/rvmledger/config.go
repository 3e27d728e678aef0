package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/ekosetor/rvmledger/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultMachineAddr  = "http://localhost:3000"
	defaultEnvironment  = logger.EnvProduction
	defaultPageSize     = 10
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the review API will be served
	ListenAddr string

	// Vendor hardware API address to pull deposit records from
	MachineAddr string

	// Database to connect to
	DatabaseDSN string

	// Environment
	Environment string

	// Vendor records fetched per user per harvest run
	HarvestPageSize int

	// Run one harvest + verification sweep and exit instead of serving HTTP
	RunOnce bool
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		ListenAddr:      defaultListenAddr,
		MachineAddr:     defaultMachineAddr,
		Environment:     defaultEnvironment,
		HarvestPageSize: defaultPageSize,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setInt := func(o *int) func(value string) {
		return func(value string) {
			if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
				*o = parsed
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":         setString(&c.ListenAddr),
		"DATABASE_URI":        setString(&c.DatabaseDSN),
		"MACHINE_API_ADDRESS": setString(&c.MachineAddr),
		"LOG_LEVEL":           setString(&c.LogLevel),
		"ENVIRONMENT":         setString(&c.Environment),
		"HARVEST_PAGE_SIZE":   setInt(&c.HarvestPageSize),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("rvmledger", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.MachineAddr, "machine", "m", c.MachineAddr, "Vendor hardware API address")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.IntVar(&c.HarvestPageSize, "page-size", c.HarvestPageSize, "Vendor records fetched per user per harvest run")
	fs.BoolVar(&c.RunOnce, "once", c.RunOnce, "Run a single harvest and verification sweep, then exit")

	return fs.Parse(args)
}
