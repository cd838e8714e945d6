// Command umbralctl demonstrates the full delegator -> proxy -> delegatee
// threshold proxy re-encryption flow end to end: it generates a delegator
// and delegatee key pair, encrypts a message, splits a re-encryption key
// into N fragments of which T are used to re-encrypt the capsule, and
// recovers the original plaintext as the delegatee.
//
// Usage:
//
//	umbralctl [flags]
//
// Flags:
//
//	-t                 reconstruction threshold (default: 2)
//	-n                 number of key fragments (default: 3)
//	-message           plaintext message to encrypt (default: "peace at dawn")
//	-sign-delegating   embed and sign the delegator's public key in each kfrag
//	-sign-receiving    embed and sign the delegatee's public key in each kfrag
//	-log-level         debug, info, warn, or error (default: "info")
//	-log-format        text, json, or color (default: "text")
//	-version           print version and exit
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/eth2030/umbral/cfrag"
	"github.com/eth2030/umbral/keys"
	"github.com/eth2030/umbral/kfrag"
	"github.com/eth2030/umbral/log"
	"github.com/eth2030/umbral/pre"
)

var version = "v0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

// config holds the resolved CLI flags.
type config struct {
	t              int
	n              int
	message        string
	signDelegating bool
	signReceiving  bool
	logLevel       string
	logFormat      string
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	level := log.LevelFromString(cfg.logLevel)
	formatter := log.FormatterFromString(cfg.logFormat)
	log.SetDefault(log.NewWithFormatter(log.SlogLevel(level), formatter, os.Stderr))

	logger := log.Default().Module("umbralctl")

	if err := demo(cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "umbralctl: %v\n", err)
		return 1
	}
	return 0
}

// demo runs the full delegator -> proxy -> delegatee flow and prints the
// recovered plaintext.
func demo(cfg config, logger *log.Logger) error {
	skA, err := keys.RandomSecretKey()
	if err != nil {
		return fmt.Errorf("generating delegator key: %w", err)
	}
	skB, err := keys.RandomSecretKey()
	if err != nil {
		return fmt.Errorf("generating delegatee key: %w", err)
	}
	skS, err := keys.RandomSecretKey()
	if err != nil {
		return fmt.Errorf("generating signer key: %w", err)
	}
	signer := keys.NewSigner(skS)

	cap, ct, err := pre.Encrypt(skA.PublicKey(), []byte(cfg.message))
	if err != nil {
		return fmt.Errorf("encrypting message: %w", err)
	}
	logger.Info("encrypted message", "threshold", cfg.t, "fragments", cfg.n)

	kfrags, err := kfrag.GenerateKFrags(skA, skB.PublicKey(), signer, cfg.t, cfg.n, cfg.signDelegating, cfg.signReceiving)
	if err != nil {
		return fmt.Errorf("generating key fragments: %w", err)
	}

	vcfrags := make([]cfrag.VerifiedCapsuleFrag, 0, cfg.t)
	for i := 0; i < cfg.t; i++ {
		kf := kfrags[i].Unverify()
		vkf, err := kf.Verify(signer.PublicKey(), skA.PublicKey(), skB.PublicKey())
		if err != nil {
			return fmt.Errorf("verifying key fragment %d: %w", i, err)
		}
		vcf, err := cfrag.Reencrypt(cap, vkf)
		if err != nil {
			return fmt.Errorf("re-encrypting with fragment %d: %w", i, err)
		}
		if _, err := vcf.Unverify().Verify(cap, signer.PublicKey(), skA.PublicKey(), skB.PublicKey(), kf.Commitment()); err != nil {
			return fmt.Errorf("verifying capsule fragment %d: %w", i, err)
		}
		vcfrags = append(vcfrags, vcf)
		logger.Info("proxy re-encrypted", "fragment", i)
	}

	plaintext, err := pre.DecryptReencrypted(skB, skA.PublicKey(), cap, vcfrags, ct)
	if err != nil {
		return fmt.Errorf("decrypting as delegatee: %w", err)
	}

	capBytes := cap.Bytes()
	fmt.Printf("capsule:   %x\n", capBytes)
	fmt.Printf("plaintext: %s\n", plaintext)
	return nil
}

// parseFlags parses CLI arguments into a config. Returns the config,
// whether the caller should exit immediately, and the exit code.
func parseFlags(args []string) (config, bool, int) {
	cfg := config{t: 2, n: 3, message: "peace at dawn", logLevel: "info", logFormat: "text"}

	fs := flag.NewFlagSet("umbralctl", flag.ContinueOnError)
	fs.IntVar(&cfg.t, "t", cfg.t, "reconstruction threshold")
	fs.IntVar(&cfg.n, "n", cfg.n, "number of key fragments")
	fs.StringVar(&cfg.message, "message", cfg.message, "plaintext message to encrypt")
	fs.BoolVar(&cfg.signDelegating, "sign-delegating", false, "embed and sign the delegator's public key in each kfrag")
	fs.BoolVar(&cfg.signReceiving, "sign-receiving", false, "embed and sign the delegatee's public key in each kfrag")
	fs.StringVar(&cfg.logLevel, "log-level", cfg.logLevel, "debug, info, warn, or error")
	fs.StringVar(&cfg.logFormat, "log-format", cfg.logFormat, "text, json, or color")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, true, 2
	}
	if *showVersion {
		fmt.Printf("umbralctl %s\n", version)
		return cfg, true, 0
	}
	return cfg, false, 0
}
