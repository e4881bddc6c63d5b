package onnx

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNX Runtime is initialized once per process
var runtimeEnv struct {
	once sync.Once
	err  error
}

func initRuntime(libPath string) error {
	runtimeEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		runtimeEnv.err = ort.InitializeEnvironment()
	})
	return runtimeEnv.err
}

// runner executes the sequence classification graph for one sequence
type runner interface {
	run(inputIDs, attentionMask []int64) ([]float32, error)
	close() error
}

// session runs a sequence classification model producing [batch, classes] logits
type session struct {
	session    *ort.DynamicAdvancedSession
	withTypes  bool
	numClasses int64
}

func newSession(modelPath, libPath string, numClasses, intraOpThreads int) (*session, error) {
	if err := initRuntime(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}

	inputNames, withTypes, err := inputNamesOf(inputs)
	if err != nil {
		return nil, err
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	logits := outputs[0]
	if len(logits.Dimensions) != 2 {
		return nil, fmt.Errorf("onnx: expected 2D logits output, got %v", logits.Dimensions)
	}
	if d := logits.Dimensions[1]; d > 0 && d != int64(numClasses) {
		return nil, fmt.Errorf("onnx: model has %d classes, config declares %d", d, numClasses)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if intraOpThreads > 0 {
		if err := opts.SetIntraOpNumThreads(intraOpThreads); err != nil {
			return nil, fmt.Errorf("onnx: %w", err)
		}
	}

	s, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{logits.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &session{
		session:    s,
		withTypes:  withTypes,
		numClasses: int64(numClasses),
	}, nil
}

// inputNamesOf returns the graph inputs in feed order. DistilBERT exports
// have no token_type_ids; BERT exports do.
func inputNamesOf(inputs []ort.InputOutputInfo) ([]string, bool, error) {
	present := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		present[in.Name] = true
	}
	for _, name := range []string{"input_ids", "attention_mask"} {
		if !present[name] {
			return nil, false, fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	if present["token_type_ids"] {
		return []string{"input_ids", "attention_mask", "token_type_ids"}, true, nil
	}
	return []string{"input_ids", "attention_mask"}, false, nil
}

func (s *session) run(inputIDs, attentionMask []int64) ([]float32, error) {
	shape := ort.NewShape(1, int64(len(inputIDs)))

	ids, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: input_ids tensor: %w", err)
	}
	defer ids.Destroy()

	mask, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("onnx: attention_mask tensor: %w", err)
	}
	defer mask.Destroy()

	inputs := []ort.Value{ids, mask}
	if s.withTypes {
		types, err := ort.NewTensor(shape, make([]int64, len(inputIDs)))
		if err != nil {
			return nil, fmt.Errorf("onnx: token_type_ids tensor: %w", err)
		}
		defer types.Destroy()
		inputs = append(inputs, types)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, s.numClasses))
	if err != nil {
		return nil, fmt.Errorf("onnx: logits tensor: %w", err)
	}
	defer out.Destroy()

	if err := s.session.Run(inputs, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	logits := make([]float32, s.numClasses)
	copy(logits, out.GetData())
	return logits, nil
}

func (s *session) close() error {
	return s.session.Destroy()
}
