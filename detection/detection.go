// Package detection binary-searches the feasible configuration frontier of
// an installed llama-server across a ladder of context sizes, benchmarking
// each candidate by launching it through a supervisor and driving it with
// the completions client. Grounded on the teacher's llamaruntime benchmark
// sweep together with its HealthChecker ticker-goroutine idiom for readiness
// polling, generalized here into a one-shot supervisor readiness wait.
package detection

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"llamahost/completionclient"
	"llamahost/config"
	"llamahost/gputelemetry"
	"llamahost/installprobe"
	"llamahost/logging"
	"llamahost/modelfile"
	"llamahost/serverconfig"
	"llamahost/supervisor"
)

// Benchmark is one winning config at one context size (§3 DATA MODEL).
type Benchmark struct {
	ContextSize   int                 `json:"contextSize"`
	Config        serverconfig.Config `json:"config"`
	PromptTps     float64             `json:"promptTps"`
	GenerationTps float64             `json:"generationTps"`
}

// Score is used only to rank candidates within one context size.
func (b Benchmark) Score() float64 { return b.PromptTps + b.GenerationTps }

// Result pairs a model's static file info with the ordered benchmarks
// detection produced, ascending by context size.
type Result struct {
	FileInfo   modelfile.Info `json:"fileInfo"`
	Benchmarks []Benchmark    `json:"benchmarks"`
}

// benchmarkPrompts are the three fixed inputs from §6.3, used verbatim for
// every probe so TPS figures are comparable across configs.
var benchmarkPrompts = []string{
	"What is machine learning and how does it differ from traditional programming?",
	"What are the essential ingredients needed to make pasta from scratch?",
	"How many players are on a basketball team during a game?",
}

// overridePatterns are the predefined tensor-override patterns tried against
// every context size, in order; the monotonicity hint (§4.5) only retests
// patterns that succeeded at the previous (smaller) context size.
var overridePatterns = [][]string{
	{"ffn_up.*=CPU"},
	{"ffn_down.*=CPU"},
	{"ffn_gate.*=CPU"},
	{"ffn_up.*=CPU", "ffn_down.*=CPU"},
	{"ffn_up.*=CPU", "ffn_gate.*=CPU"},
	{"attn.*=CPU"},
}

const benchmarkMaxTokens = 20

// defaultContextLengthFallback is used when the model's metadata does not
// advertise a context length (§4.5: "falling back to 128 × 1024 if absent").
const defaultContextLengthFallback = 128 * 1024

// Engine runs detection for one installation handle.
type Engine struct {
	Install *installprobe.Handle
	Config  *config.Config
	Logger  *zap.Logger
	GPU     *gputelemetry.Monitor // optional; nil disables telemetry sampling
}

// NewEngine returns an Engine; logger and gpu may be nil (a no-op logger and
// disabled telemetry are substituted).
func NewEngine(install *installprobe.Handle, cfg *config.Config, logger *zap.Logger, gpu *gputelemetry.Monitor) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Install: install, Config: cfg, Logger: logger, GPU: gpu}
}

// Run inspects modelPath and searches every context size in e.Config.ContextLadder
// up to the model's (or fallback) context length, returning one Result with
// benchmarks in ascending context order — context sizes with no successful
// config are simply omitted.
func (e *Engine) Run(ctx context.Context, modelPath string) (Result, error) {
	info, err := modelfile.Inspect(modelPath)
	if err != nil {
		return Result{}, err
	}

	maxContext := defaultContextLengthFallback
	if info.ContextLength != nil {
		maxContext = int(*info.ContextLength)
	}

	hasGPU, err := e.Install.HasCUDA(ctx)
	if err != nil {
		return Result{}, err
	}

	search := &ladderSearch{
		engine:     e,
		modelPath:  modelPath,
		blockCount: info.BlockCount,
		hasGPU:     hasGPU,
	}

	var benchmarks []Benchmark
	for _, contextSize := range e.Config.ContextLadder {
		if contextSize > maxContext {
			break
		}
		best := search.searchContextSize(ctx, contextSize)
		if best != nil {
			benchmarks = append(benchmarks, *best)
		}
	}

	return Result{FileInfo: info, Benchmarks: benchmarks}, nil
}

// ladderSearch carries monotonicity hints forward across ascending context
// sizes within a single Run (§4.5 "Monotonicity hints").
type ladderSearch struct {
	engine     *Engine
	modelPath  string
	blockCount int64
	hasGPU     bool

	havePrevGPULayers bool
	prevGPULayers     int // max feasible gpuLayers at the previous (smaller) context size

	havePrevNCPUMoe bool
	prevNCPUMoe     int // min feasible nCpuMoe at the previous context size

	survivingPatterns [][]string // working tensor-override patterns so far; nil before first context size
	patternsSeeded    bool
}

// searchContextSize runs the full per-context-size search of §4.5 and
// returns the best (highest-score) benchmark, or nil if nothing succeeded.
func (s *ladderSearch) searchContextSize(ctx context.Context, contextSize int) *Benchmark {
	var candidates []Benchmark

	base := serverconfig.Config{ModelPath: s.modelPath, ContextSize: contextSize}

	if !s.hasGPU {
		for _, fa := range []serverconfig.FlashAttention{serverconfig.FlashAttentionOn, serverconfig.FlashAttentionOff} {
			cfg := base
			cfg.FlashAttention = fa
			if b, ok := s.engine.benchmark(ctx, cfg); ok {
				candidates = append(candidates, b)
			}
		}
		return bestOf(candidates)
	}

	for _, fa := range []serverconfig.FlashAttention{serverconfig.FlashAttentionOn, serverconfig.FlashAttentionOff} {
		faCandidates := s.searchFlashAttnVariant(ctx, base, fa)
		candidates = append(candidates, faCandidates...)
	}

	return bestOf(candidates)
}

func (s *ladderSearch) searchFlashAttnVariant(ctx context.Context, base serverconfig.Config, fa serverconfig.FlashAttention) []Benchmark {
	var out []Benchmark
	base.FlashAttention = fa

	allGPU := base
	allGPU.GPULayers = intPtr(999)
	if b, ok := s.engine.benchmark(ctx, allGPU); ok {
		out = append(out, b)
	} else {
		if best, found := s.searchMaxGPULayers(ctx, base); found {
			out = append(out, best)
		}
	}

	if best, found := s.searchMinNCPUMoe(ctx, base); found {
		out = append(out, best)
	}

	out = append(out, s.searchOverridePatterns(ctx, base)...)

	return out
}

// searchMaxGPULayers binary-searches the maximum feasible gpuLayers on
// [0, min(999, blockCount)], seeded by the previous context size's result
// as the right edge (monotone non-increasing).
func (s *ladderSearch) searchMaxGPULayers(ctx context.Context, base serverconfig.Config) (Benchmark, bool) {
	right := 999
	if s.blockCount > 0 && int(s.blockCount) < right {
		right = int(s.blockCount)
	}
	if s.havePrevGPULayers && s.prevGPULayers < right {
		right = s.prevGPULayers
	}

	builder := func(v int) serverconfig.Config {
		cfg := base
		cfg.GPULayers = intPtr(v)
		return cfg
	}

	best, bestVal, found := s.engine.binarySearch(ctx, 0, right, true, nil, builder)
	s.havePrevGPULayers = true
	if !found {
		s.prevGPULayers = 0
		return Benchmark{}, false
	}
	s.prevGPULayers = bestVal
	if bestVal == 0 {
		// §4.5: "emit (gpuLayers = found > 0 ? found : null)".
		best.Config.GPULayers = nil
	}
	return best, true
}

// searchMinNCPUMoe binary-searches the minimum feasible nCpuMoe on
// [0, blockCount] with gpuLayers = 999, seeded by the previous context
// size's result as an early-exit probe (monotone non-decreasing).
func (s *ladderSearch) searchMinNCPUMoe(ctx context.Context, base serverconfig.Config) (Benchmark, bool) {
	base.GPULayers = intPtr(999)

	builder := func(v int) serverconfig.Config {
		cfg := base
		cfg.NCPUMoe = intPtr(v)
		return cfg
	}

	var initial *int
	if s.havePrevNCPUMoe {
		v := s.prevNCPUMoe
		initial = &v
	}

	best, bestVal, found := s.engine.binarySearch(ctx, 0, int(s.blockCount), false, initial, builder)
	s.havePrevNCPUMoe = true
	if found {
		s.prevNCPUMoe = bestVal
		return best, true
	}
	return Benchmark{}, false
}

// searchOverridePatterns tests the predefined tensor-override patterns
// (§6.3), restricted on later context sizes to patterns that survived the
// previous one (the surviving set is non-growing).
func (s *ladderSearch) searchOverridePatterns(ctx context.Context, base serverconfig.Config) []Benchmark {
	candidatePatterns := overridePatterns
	if s.patternsSeeded {
		candidatePatterns = s.survivingPatterns
	}

	var out []Benchmark
	var stillWorking [][]string
	for _, pattern := range candidatePatterns {
		cfg := base
		cfg.GPULayers = intPtr(999)
		cfg.OverrideTensors = pattern
		if b, ok := s.engine.benchmark(ctx, cfg); ok {
			out = append(out, b)
			stillWorking = append(stillWorking, pattern)
		}
	}
	s.survivingPatterns = stillWorking
	s.patternsSeeded = true
	return out
}

// binarySearch implements the §4.5 contract: integer binary search over
// [left, right] via builder, benchmarking (not merely starting) each
// midpoint, returning the extreme successful value toward maximize's
// direction (or the initialValue if nothing improved on it).
func (e *Engine) binarySearch(ctx context.Context, left, right int, maximize bool, initialValue *int, builder func(int) serverconfig.Config) (Benchmark, int, bool) {
	var best Benchmark
	found := false
	bestVal := 0

	if initialValue != nil {
		cfg := builder(*initialValue)
		b, ok := e.benchmark(ctx, cfg)
		if !ok {
			return Benchmark{}, 0, false
		}
		best, bestVal, found = b, *initialValue, true
		if maximize {
			left = *initialValue
		} else {
			right = *initialValue
		}
	}

	lo, hi := left, right
	for lo <= hi {
		mid := lo + (hi-lo)/2
		cfg := builder(mid)
		b, ok := e.benchmark(ctx, cfg)
		if ok {
			if !found || (maximize && mid > bestVal) || (!maximize && mid < bestVal) {
				best, bestVal, found = b, mid, true
			}
			if maximize {
				lo = mid + 1
			} else {
				hi = mid - 1
			}
		} else {
			if maximize {
				hi = mid - 1
			} else {
				lo = mid + 1
			}
		}
	}

	return best, bestVal, found
}

// benchmark starts cfg at an auto port, runs the three fixed prompts, and
// tears the process down unconditionally. Any failure (start, timeout,
// protocol error) yields ok=false per §7 policy: the engine converts it to
// "config infeasible" and keeps searching, it never propagates.
func (e *Engine) benchmark(ctx context.Context, cfg serverconfig.Config) (Benchmark, bool) {
	cfg.Host = "127.0.0.1"
	cfg.Port = 0

	startTimeout := 60 * time.Second
	completionTimeout := 120 * time.Second
	if e.Config != nil {
		if e.Config.StartTimeout > 0 {
			startTimeout = e.Config.StartTimeout
		}
		if e.Config.CompletionTimeout > 0 {
			completionTimeout = e.Config.CompletionTimeout
		}
	}

	sv := supervisor.New(e.Install, cfg, supervisor.Options{StartTimeout: startTimeout})

	e.Logger.Debug("probe attempt", logging.Probe(probeFields(cfg, false, 0, 0)))

	startCtx, cancel := context.WithTimeout(ctx, startTimeout+5*time.Second)
	defer cancel()

	if err := sv.Start(startCtx); err != nil {
		e.Logger.Info("probe rejected", logging.Probe(probeFields(cfg, false, 0, 0)), zap.Error(err))
		return Benchmark{}, false
	}
	defer sv.Stop(true)

	if e.GPU != nil && e.GPU.Available() {
		if sample, err := e.GPU.SampleDevice(0); err == nil {
			e.Logger.Debug("gpu telemetry", logging.GPU(sample))
		}
	}

	baseURL := fmt.Sprintf("http://%s:%d", cfg.EffectiveHost(), sv.Port())
	client := completionclient.New(baseURL, completionTimeout)

	promptTps, generationTps, err := e.runPrompts(ctx, client, completionTimeout)
	if err != nil {
		e.Logger.Info("probe rejected", logging.Probe(probeFields(cfg, false, 0, 0)), zap.Error(err))
		return Benchmark{}, false
	}

	fields := probeFields(cfg, true, promptTps, generationTps)
	e.Logger.Info("probe succeeded", logging.Probe(fields))

	return Benchmark{
		ContextSize:   cfg.EffectiveContextSize(),
		Config:        cfg,
		PromptTps:     promptTps,
		GenerationTps: generationTps,
	}, true
}

func (e *Engine) runPrompts(ctx context.Context, client completionclient.Client, timeout time.Duration) (float64, float64, error) {
	var promptSum, genSum float64
	for _, prompt := range benchmarkPrompts {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		timings, err := client.Complete(reqCtx, prompt, benchmarkMaxTokens)
		cancel()
		if err != nil {
			return 0, 0, err
		}
		promptSum += timings.PromptPerSecond
		genSum += timings.PredictedPerSecond
	}
	n := float64(len(benchmarkPrompts))
	return promptSum / n, genSum / n, nil
}

func probeFields(cfg serverconfig.Config, success bool, promptTps, generationTps float64) logging.ProbeFields {
	modelDir := filepath.Dir(cfg.ModelPath)
	return logging.ProbeFields{
		ContextSize:     cfg.EffectiveContextSize(),
		GPULayers:       cfg.GPULayers,
		NCPUMoe:         cfg.EffectiveNCPUMoe(),
		FlashAttention:  string(cfg.FlashAttention),
		Success:         success,
		PromptTps:       promptTps,
		GenerationTps:   generationTps,
		Args:            logging.RedactPathsOutsideDir(cfg.Args, modelDir),
		OverrideTensors: logging.RedactPathsOutsideDir(cfg.OverrideTensors, modelDir),
	}
}

func bestOf(candidates []Benchmark) *Benchmark {
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score() > candidates[j].Score() })
	best := candidates[0]
	return &best
}

func intPtr(v int) *int { return &v }
