package importer

import (
	"context"
)

type ParsingStrategy interface {
	Parse(ctx context.Context, data []byte) ([]Row, error)
	Validate(ctx context.Context, rows []Row) error
}

type TabularStrategy struct {
	parser    *Parser
	validator *Validator
}

func NewStrategy(format Format) ParsingStrategy {
	v := NewValidator()
	return &TabularStrategy{
		parser:    NewParser(format, v),
		validator: v,
	}
}

// StrategyFor picks the strategy matching the uploaded file name.
func StrategyFor(filename string) (ParsingStrategy, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	return NewStrategy(format), nil
}

func (s *TabularStrategy) Parse(ctx context.Context, data []byte) ([]Row, error) {
	return s.parser.Parse(ctx, data)
}

func (s *TabularStrategy) Validate(ctx context.Context, rows []Row) error {
	return s.validator.Validate(ctx, rows)
}
