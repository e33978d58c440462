package analyses

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"resume-matcher/internal/llm"
)

const resultSchemaURL = "result.schema.json"

var (
	resultSchemaOnce sync.Once
	resultSchema     *jsonschema.Schema
	resultSchemaErr  error
)

func compiledResultSchema() (*jsonschema.Schema, error) {
	resultSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(resultSchemaURL, bytes.NewReader(llm.ResultJSONSchema())); err != nil {
			resultSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		resultSchema, resultSchemaErr = compiler.Compile(resultSchemaURL)
		if resultSchemaErr != nil {
			resultSchemaErr = fmt.Errorf("compile schema: %w", resultSchemaErr)
		}
	})
	return resultSchema, resultSchemaErr
}

type wireResult struct {
	Score            json.Number `json:"score"`
	Summary          string      `json:"summary"`
	MatchedKeywords  []string    `json:"matchedKeywords"`
	MissingKeywords  []string    `json:"missingKeywords"`
	Improvements     []string    `json:"improvements"`
	FormattingIssues []string    `json:"formattingIssues"`
}

// DecodeResult validates a raw provider payload and converts it to a Result.
// Anything short of the full contract is rejected.
func DecodeResult(raw []byte) (Result, error) {
	clean := llm.StripCodeFences(string(raw))
	if clean == "" {
		return Result{}, errors.New("empty payload")
	}

	schema, err := compiledResultSchema()
	if err != nil {
		return Result{}, err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Result{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	if dec.More() {
		return Result{}, errors.New("unexpected data after payload")
	}
	if err := schema.Validate(doc); err != nil {
		return Result{}, fmt.Errorf("payload does not match schema: %w", err)
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		return Result{}, fmt.Errorf("decode payload: %w", err)
	}
	score, err := integralScore(wire.Score)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Score:            score,
		Summary:          wire.Summary,
		MatchedKeywords:  wire.MatchedKeywords,
		MissingKeywords:  wire.MissingKeywords,
		Improvements:     wire.Improvements,
		FormattingIssues: wire.FormattingIssues,
	}, nil
}

func integralScore(n json.Number) (int, error) {
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("score: %w", err)
	}
	if f != math.Trunc(f) || f < llm.ScoreMin || f > llm.ScoreMax {
		return 0, fmt.Errorf("score %s out of range", n)
	}
	return int(f), nil
}
