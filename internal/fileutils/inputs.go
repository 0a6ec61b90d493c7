package fileutils

import (
	"fmt"
	"strings"

	"fjacquet/camt-attest/internal/config"
	"fjacquet/camt-attest/internal/logging"
	"fjacquet/camt-attest/internal/pipeline"
	"fjacquet/camt-attest/internal/verifyerror"
)

// Fragment file suffixes appended to the configured prefix as <prefix>-<Part>.
const (
	SuffixSignedInfo     = "SignedInfo"
	SuffixAuthenticated  = "authenticated"
	SuffixSignatureValue = "SignatureValue"
	SuffixOrderData      = "OrderData"
	SuffixDigestBlock    = "DataDigest"

	inputsOp = "inputs"
)

// FragmentPaths holds the resolved fragment file names. DigestBlock is empty when
// the response carries no digest block.
type FragmentPaths struct {
	SignedInfo     string
	Authenticated  string
	SignatureValue string
	OrderData      string
	DigestBlock    string
	// DigestOptional is set when DigestBlock was derived from the prefix and may be
	// absent on disk.
	DigestOptional bool
}

// ResolveFragments applies the prefix naming convention. Explicit paths win over
// derived ones.
func ResolveFragments(cfg *config.Config) (FragmentPaths, error) {
	in := cfg.Input
	derive := func(explicit, suffix string) string {
		if explicit != "" || in.Prefix == "" {
			return explicit
		}
		return in.Prefix + "-" + suffix
	}

	p := FragmentPaths{
		SignedInfo:     derive(in.SignedInfo, SuffixSignedInfo),
		Authenticated:  derive(in.Authenticated, SuffixAuthenticated),
		SignatureValue: derive(in.SignatureValue, SuffixSignatureValue),
		OrderData:      derive(in.OrderData, SuffixOrderData),
		DigestBlock:    derive(in.DigestBlock, SuffixDigestBlock),
		DigestOptional: in.DigestBlock == "",
	}

	for _, req := range []struct{ field, path string }{
		{SuffixSignedInfo, p.SignedInfo},
		{SuffixAuthenticated, p.Authenticated},
		{SuffixSignatureValue, p.SignatureValue},
		{SuffixOrderData, p.OrderData},
	} {
		if req.path == "" {
			return FragmentPaths{}, &verifyerror.MissingFieldError{Parser: inputsOp, Field: req.field}
		}
	}
	return p, nil
}

// LoadInputs reads every file named by cfg into pipeline inputs.
func LoadInputs(cfg *config.Config, logger logging.Logger) (pipeline.Inputs, error) {
	log := logging.OrDiscard(logger)

	paths, err := ResolveFragments(cfg)
	if err != nil {
		return pipeline.Inputs{}, err
	}

	read := func(path string) ([]byte, error) {
		data, err := ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", inputsOp, err)
		}
		log.Debug("Read input file",
			logging.Field{Key: logging.FieldInputFile, Value: path},
			logging.Field{Key: logging.FieldSize, Value: len(data)})
		return data, nil
	}
	readText := func(path string) (string, error) {
		data, err := read(path)
		return string(data), err
	}
	readOptional := func(path string) ([]byte, error) {
		if path == "" {
			return nil, nil
		}
		return read(path)
	}

	in := pipeline.Inputs{
		BankModulus:  cfg.Keys.BankModulus,
		BankExponent: cfg.Keys.BankExponent,
		BankKeyHash:  cfg.Keys.BankKeyHash,
		IBAN:         cfg.Statement.IBAN,
		HostInfo:     cfg.Statement.HostInfo,
	}
	// the exponent has a default; without a modulus there is no decimal key
	if in.BankModulus == "" {
		in.BankExponent = ""
	}

	if in.Fragments.SignedInfo, err = readText(paths.SignedInfo); err != nil {
		return pipeline.Inputs{}, err
	}
	if in.Fragments.Authenticated, err = readText(paths.Authenticated); err != nil {
		return pipeline.Inputs{}, err
	}
	if in.Fragments.SignatureValue, err = readText(paths.SignatureValue); err != nil {
		return pipeline.Inputs{}, err
	}
	if in.Fragments.OrderData, err = readText(paths.OrderData); err != nil {
		return pipeline.Inputs{}, err
	}
	if paths.DigestBlock != "" && (!paths.DigestOptional || FileExists(paths.DigestBlock)) {
		if in.Fragments.DigestBlock, err = readText(paths.DigestBlock); err != nil {
			return pipeline.Inputs{}, err
		}
	}

	if in.BankPEM, err = readOptional(cfg.Keys.BankPEM); err != nil {
		return pipeline.Inputs{}, err
	}
	if in.ClientPEM, err = readOptional(cfg.Keys.ClientPEM); err != nil {
		return pipeline.Inputs{}, err
	}
	if in.DecryptedTxKey, err = readOptional(cfg.Keys.DecryptedTxKey); err != nil {
		return pipeline.Inputs{}, err
	}
	if in.WitnessPEM, err = readOptional(cfg.Keys.WitnessPEM); err != nil {
		return pipeline.Inputs{}, err
	}
	sig, err := readOptional(cfg.Keys.WitnessSignature)
	if err != nil {
		return pipeline.Inputs{}, err
	}
	in.WitnessSignature = strings.TrimSpace(string(sig))

	return in, nil
}
