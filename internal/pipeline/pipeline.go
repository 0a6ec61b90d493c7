// Package pipeline runs the attestation of one EBICS statement download: envelope
// parsing, bank signature verification, transaction key recovery, payload decoding,
// the optional witness check, statement parsing and the commitment.
//
// Stages run strictly in order and the first failure aborts the run without a
// commitment.
package pipeline

import (
	"fjacquet/camt-attest/internal/camtparser"
	"fjacquet/camt-attest/internal/commitment"
	"fjacquet/camt-attest/internal/ebicsparser"
	"fjacquet/camt-attest/internal/logging"
	"fjacquet/camt-attest/internal/meter"
	"fjacquet/camt-attest/internal/models"
	"fjacquet/camt-attest/internal/payload"
	"fjacquet/camt-attest/internal/signature"
	"fjacquet/camt-attest/internal/txkey"
	"fjacquet/camt-attest/internal/verifyerror"

	"github.com/google/uuid"
)

// Stage labels, used for checkpoints and the stage log field.
const (
	StageKeys           = "load_keys"
	StageEnvelope       = "parse_envelope"
	StageBankSignature  = "verify_bank_signature"
	StageTransactionKey = "recover_transaction_key"
	StageWitness        = "verify_witness_signature"
	StagePayload        = "decode_payload"
	StageStatements     = "parse_statements"
	StageCommitment     = "build_commitment"
)

// Pipeline runs attestations. It holds no per-run state and may be reused.
type Pipeline struct {
	logger logging.Logger
	cost   meter.CostFunc
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCostFunc sets the cost source of the checkpoints. The default is wall-clock
// nanoseconds.
func WithCostFunc(cost meter.CostFunc) Option {
	return func(p *Pipeline) { p.cost = cost }
}

// New creates a pipeline. A nil logger discards.
func New(logger logging.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{logger: logging.OrDiscard(logger)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of a successful run.
type Result struct {
	RunID       string
	Commitment  *commitment.Commitment
	Serialized  string
	Checkpoints []meter.Checkpoint
}

// Decoded is the outcome of the verification and decoding stages.
type Decoded struct {
	RunID       string
	Fields      *ebicsparser.ProtocolFields
	Members     []payload.Member
	Checkpoints []meter.Checkpoint
}

type run struct {
	id     string
	logger logging.Logger
	meter  *meter.Meter
}

// Run attests the inputs and returns the serialized commitment.
func (p *Pipeline) Run(in Inputs) (*Result, error) {
	r := p.newRun()
	r.logger.Info("Starting attestation", logging.Field{Key: logging.FieldIBAN, Value: in.IBAN})

	members, _, err := p.decode(r, in)
	if err != nil {
		return nil, err
	}

	parser := camtparser.New(r.logger)
	var docs []models.Document
	for _, m := range members {
		doc, err := parser.ParseFiltered(m.Content, in.IBAN)
		if err != nil {
			return nil, r.fail(StageStatements, err)
		}
		if doc == nil {
			r.logger.Debug("Member has no statement for the account",
				logging.Field{Key: logging.FieldMember, Value: m.Name})
			continue
		}
		docs = append(docs, *doc)
	}
	r.meter.Checkpoint(StageStatements)
	r.logger.Debug("Statements parsed",
		logging.Field{Key: logging.FieldStage, Value: StageStatements},
		logging.Field{Key: logging.FieldCount, Value: models.StatementCount(docs)})

	c, err := commitment.Build(docs, in.HostInfo, in.IBAN)
	if err != nil {
		return nil, r.fail(StageCommitment, err)
	}
	serialized, err := commitment.Serialize(c)
	if err != nil {
		return nil, r.fail(StageCommitment, err)
	}
	r.meter.Checkpoint(StageCommitment)

	r.logger.Info("Attestation completed",
		logging.Field{Key: logging.FieldCount, Value: len(c.Stmts)},
		logging.Field{Key: logging.FieldCost, Value: r.meter.Total()})

	return &Result{
		RunID:       r.id,
		Commitment:  c,
		Serialized:  serialized,
		Checkpoints: r.meter.Checkpoints(),
	}, nil
}

// Decode runs every verification stage and returns the archive members without
// parsing them.
func (p *Pipeline) Decode(in Inputs) (*Decoded, error) {
	r := p.newRun()
	members, fields, err := p.decode(r, in)
	if err != nil {
		return nil, err
	}
	return &Decoded{RunID: r.id, Fields: fields, Members: members, Checkpoints: r.meter.Checkpoints()}, nil
}

func (p *Pipeline) newRun() *run {
	id := uuid.NewString()
	logger := p.logger.WithField(logging.FieldRunID, id)
	return &run{id: id, logger: logger, meter: meter.New(p.cost, logger)}
}

func (p *Pipeline) decode(r *run, in Inputs) ([]payload.Member, *ebicsparser.ProtocolFields, error) {
	k, err := in.loadKeys()
	if err != nil {
		return nil, nil, r.fail(StageKeys, err)
	}
	r.meter.Checkpoint(StageKeys)
	r.logger.Debug("Keys loaded",
		logging.Field{Key: logging.FieldKeyBits, Value: k.bank.N.BitLen()},
		logging.Field{Key: "client_key_bits", Value: k.client.N.BitLen()})

	if in.BankKeyHash != "" {
		if err := signature.CheckKeyHash(k.bank, in.BankKeyHash); err != nil {
			return nil, nil, r.fail(StageKeys, err)
		}
	}

	fields, err := ebicsparser.Parse(in.Fragments)
	if err != nil {
		return nil, nil, r.fail(StageEnvelope, err)
	}
	r.meter.Checkpoint(StageEnvelope)
	r.logger.Debug("Envelope parsed",
		logging.Field{Key: logging.FieldTimestamp, Value: fields.BankTimestamp},
		logging.Field{Key: logging.FieldSize, Value: len(fields.Ciphertext)})

	if err := signature.VerifyBank(k.bank, fields.SignedInfoHash, fields.SignatureValue); err != nil {
		return nil, nil, r.fail(StageBankSignature, err)
	}
	r.meter.Checkpoint(StageBankSignature)

	key, err := txkey.Recover(k.client, fields.TransactionKey, in.DecryptedTxKey, r.meter)
	if err != nil {
		return nil, nil, r.fail(StageTransactionKey, err)
	}
	r.meter.Checkpoint(StageTransactionKey)
	r.logger.Debug("Transaction key recovered", logging.Field{Key: logging.FieldFastPath, Value: len(in.DecryptedTxKey) > 0})

	if k.witness != nil {
		if err := verifyWitness(k, in, fields); err != nil {
			return nil, nil, r.fail(StageWitness, err)
		}
		r.meter.Checkpoint(StageWitness)
	}

	members, err := payload.Open(fields.Ciphertext, key)
	clear(key)
	if err != nil {
		return nil, nil, r.fail(StagePayload, err)
	}
	r.meter.Checkpoint(StagePayload)
	for _, m := range members {
		r.logger.Debug("Archive member",
			logging.Field{Key: logging.FieldMember, Value: m.Name},
			logging.Field{Key: logging.FieldSize, Value: len(m.Content)})
	}
	return members, fields, nil
}

func verifyWitness(k *keys, in Inputs, fields *ebicsparser.ProtocolFields) error {
	var sig []byte
	var err error
	switch {
	case in.WitnessSignature != "":
		sig, err = signature.DecodeHex(in.WitnessSignature)
	case fields.PayloadSignature != "":
		sig, err = signature.DecodeBase64(fields.PayloadSignature)
	default:
		err = &verifyerror.MissingFieldError{Parser: "inputs", Field: "witness signature"}
	}
	if err != nil {
		return err
	}
	return signature.VerifyWitness(k.witness, fields.Ciphertext, sig)
}

func (r *run) fail(stage string, err error) error {
	r.logger.WithError(err).Error("Attestation failed",
		logging.Field{Key: logging.FieldStage, Value: stage},
		logging.Field{Key: logging.FieldKind, Value: string(verifyerror.KindOf(err))})
	return err
}
