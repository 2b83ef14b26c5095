package engine

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/metavec/vector"
	sqlite "modernc.org/sqlite"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterVectorFunctions registers vec_cosine and vec_l2 with the driver so they are
// available on connections opened after this call. It is safe to call repeatedly.
func RegisterVectorFunctions() error {
	registerOnce.Do(func() {
		for name, fn := range map[string]func(a, b []float32) (float64, error){
			"vec_cosine": vector.CosineSimilarity,
			"vec_l2":     vector.L2Distance,
		} {
			if err := sqlite.RegisterDeterministicScalarFunction(name, 2, scalar(name, fn)); err != nil && !alreadyRegistered(err) {
				registerErr = err
				return
			}
		}
	})
	return registerErr
}

func alreadyRegistered(err error) bool {
	return strings.Contains(err.Error(), "already")
}

// scalar adapts a distance over two embedding BLOBs. NULL in, NULL out.
func scalar(name string, fn func(a, b []float32) (float64, error)) func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error) {
	return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
		}
		a, err := blobArg(name, args[0])
		if err != nil {
			return nil, err
		}
		b, err := blobArg(name, args[1])
		if err != nil {
			return nil, err
		}
		if a == nil || b == nil {
			return nil, nil
		}
		return fn(a, b)
	}
}

func blobArg(name string, arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return vector.DecodeEmbedding(v)
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T, want BLOB", name, arg)
	}
}
