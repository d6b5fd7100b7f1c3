package engine

import (
	"context"

	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/domain/query"
	"github.com/kailas-cloud/floatchat/internal/domain/result"
	domsession "github.com/kailas-cloud/floatchat/internal/domain/session"
	"github.com/kailas-cloud/floatchat/internal/domain/verdict"
	"github.com/kailas-cloud/floatchat/internal/repository/querylog"
	"github.com/kailas-cloud/floatchat/internal/usecase/assemble"
	"github.com/kailas-cloud/floatchat/internal/usecase/memory"
	"github.com/kailas-cloud/floatchat/internal/usecase/synthesize"
)

// Memory is the conversation memory.
type Memory interface {
	Acquire(ctx context.Context, id string) (*memory.Handle, error)
	Reset(ctx context.Context, id string) error
	History(id string) ([]domsession.Turn, error)
}

// Assembler builds the model context of a question.
type Assembler interface {
	Assemble(ctx context.Context, question string, sess *domsession.Session) assemble.Payload
}

// Extractor turns a question into a resolved intent.
type Extractor interface {
	Extract(ctx context.Context, question, contextText string) (intent.Intent, error)
}

// Validator guards compiled queries.
type Validator interface {
	Validate(q query.CompiledQuery) verdict.Verdict
}

// Executor runs validated queries.
type Executor interface {
	Run(ctx context.Context, q query.CompiledQuery) (result.Summary, error)
}

// Synthesizer writes the answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, in intent.Intent, sum result.Summary) synthesize.Answer
}

// QueryLog records finished turns.
type QueryLog interface {
	Write(ctx context.Context, e querylog.Entry) error
}
