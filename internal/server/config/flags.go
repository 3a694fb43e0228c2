package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/chainkeeper/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-l string   ledger node endpoint
//	-m string   master address
//	-k string   master secret key (AGE-SECRET-KEY-1...)
//	-P string   master public key (age1...)
//	-s string   JWT HMAC secret key
//	-t int      admin token validity, minutes
//	-x int      session TTL, minutes
//	-w int      record decode workers
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Duration flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-l", "-m", "-k", "-P", "-s", "-t", "-x", "-w", "-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.LedgerEndpoint, "l", config.LedgerEndpoint, "ledger node endpoint")
	fs.StringVar(&config.MasterAddress, "m", config.MasterAddress, "master address")
	fs.StringVar(&config.MasterSecretKey, "k", config.MasterSecretKey, "master secret key")
	fs.StringVar(&config.MasterPublicKey, "P", config.MasterPublicKey, "master public key")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	adminTokenValidity := fs.Int("t", int(config.AdminTokenValidityDuration.Minutes()), "admin_token_validity_duration (in minutes)")
	sessionTTL := fs.Int("x", int(config.SessionTTL.Minutes()), "session_ttl (in minutes)")

	fs.IntVar(&config.DecodeWorkers, "w", config.DecodeWorkers, "record decode workers")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AdminTokenValidityDuration = time.Duration(*adminTokenValidity) * time.Minute
	config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
}
