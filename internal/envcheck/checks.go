package envcheck

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-version"

	"ocrd/internal/config"
	"ocrd/internal/ocrclient"
)

// Options selects optional checks.
type Options struct {
	// OutputPath is checked for write access when set.
	OutputPath string
	// ServiceURL, when set, is probed with GET /health.
	ServiceURL string
	// Runner is the effective runner config the recommendation starts from.
	// Nil means config.DefaultRunner.
	Runner *config.RunnerConfig
	// CommandTimeout bounds each external command. Zero means 10s.
	CommandTimeout time.Duration
}

var (
	minCUDA          = version.Must(version.NewVersion("11.8"))
	blackwellCUDA    = version.Must(version.NewVersion("12.8"))
	minCompute       = version.Must(version.NewVersion("7.0"))
	blackwellCompute = version.Must(version.NewVersion("12.0"))

	cudaBannerRe = regexp.MustCompile(`CUDA Version:\s*([0-9]+(?:\.[0-9]+)*)`)
)

const gpuQuery = "--query-gpu=name,driver_version,memory.total,compute_cap"

// Run executes every check against env and returns the report.
func Run(ctx context.Context, env Env, opts Options) Report {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 10 * time.Second
	}
	var r Report
	checkOS(&r, env)
	checkGPU(ctx, &r, env, opts)
	checkWSLDriver(&r, env)
	checkHFToken(&r, env)
	checkPython(&r, env)
	checkLocale(&r, env)
	checkOutput(&r, env, opts)
	checkService(ctx, &r, opts)
	return r
}

func checkOS(r *Report, env Env) {
	switch env.GOOS {
	case "linux":
	case "darwin", "windows":
		r.add(LevelWarning, "os", env.GOOS+" detected", "vLLM and DeepSeek-OCR are served from Linux; on Windows run ocrd inside WSL2 Ubuntu.")
		return
	default:
		r.add(LevelError, "os", "unsupported OS "+env.GOOS, "Use Linux or WSL2.")
		return
	}
	b, err := env.ReadFile("/proc/version")
	if err != nil {
		r.add(LevelInfo, "os", "linux", "")
		return
	}
	v := strings.ToLower(string(b))
	if !strings.Contains(v, "microsoft") {
		r.add(LevelInfo, "os", "linux (native)", "")
		return
	}
	if strings.Contains(v, "wsl2") || strings.Contains(v, "microsoft-standard") {
		r.WSL = "2"
		r.add(LevelInfo, "os", "linux (WSL2)", "")
		return
	}
	r.WSL = "1"
	r.add(LevelWarning, "os", "linux (WSL1)", "WSL1 has no GPU passthrough. Convert the distro: wsl --set-version <distro> 2")
}

func (r *Report) inWSL() bool { return r.WSL != "" }

func checkGPU(ctx context.Context, r *Report, env Env, opts Options) {
	if env.Runner == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, opts.CommandTimeout)
	defer cancel()
	out, err := env.Runner.Output(cctx, "nvidia-smi", gpuQuery, "--format=csv,noheader,nounits")
	if err != nil {
		hint := "Install the NVIDIA driver and reboot, then check that nvidia-smi lists the GPU."
		if r.inWSL() {
			hint = "Install the NVIDIA driver on Windows (not inside WSL) and run `wsl --update`.\nDo not install a Linux display driver inside the WSL distro."
		}
		r.add(LevelError, "gpu", "NVIDIA driver not loaded ("+firstLine(err.Error())+")", hint)
		return
	}
	gpu, err := parseGPUs(string(out))
	if err != nil {
		r.add(LevelError, "gpu", "cannot parse nvidia-smi output: "+err.Error(), "")
		return
	}
	r.add(LevelInfo, "gpu", fmt.Sprintf("%s, driver %s, %d MiB, compute %s", gpu.Name, gpu.Driver, gpu.MemoryMiB, gpu.ComputeCap), "")
	if gpu.Count > 1 {
		r.add(LevelInfo, "gpu", fmt.Sprintf("%d GPUs found; sizing uses the first", gpu.Count), "")
	}

	// The query interface does not report the CUDA version; the banner does.
	var cuda *version.Version
	if banner, err := env.Runner.Output(cctx, "nvidia-smi"); err == nil {
		if m := cudaBannerRe.FindStringSubmatch(string(banner)); m != nil {
			gpu.CUDA = m[1]
			cuda, _ = version.NewVersion(m[1])
		}
	}
	switch {
	case cuda == nil:
		r.add(LevelWarning, "cuda", "CUDA version unknown", "nvidia-smi did not print a CUDA version; update the driver.")
	case cuda.LessThan(minCUDA):
		r.add(LevelError, "cuda", "CUDA "+cuda.Original()+" is older than 11.8", "Update the NVIDIA driver; vLLM wheels need CUDA 11.8 or newer.")
	default:
		r.add(LevelInfo, "cuda", "CUDA "+gpu.CUDA, "")
	}

	r.GPU = &gpu
	checkCompute(r, gpu.ComputeCap, cuda)
	checkVRAM(r, gpu.MemoryMiB, opts.Runner)
}

func checkCompute(r *Report, capStr string, cuda *version.Version) {
	cc, err := version.NewVersion(capStr)
	if err != nil {
		r.add(LevelWarning, "compute", "compute capability unknown ("+capStr+")", "")
		return
	}
	switch {
	case cc.LessThan(minCompute):
		r.add(LevelError, "compute", "compute capability "+capStr+" (sm_"+smTag(capStr)+") is below 7.0",
			"vLLM kernels need Volta (sm_70) or newer.")
	case cc.GreaterThanOrEqual(blackwellCompute):
		hint := "sm_" + smTag(capStr) + " needs PyTorch/vLLM wheels built for CUDA 12.8 or newer."
		if cuda != nil && cuda.LessThan(blackwellCUDA) {
			r.add(LevelError, "compute", "compute capability "+capStr+" requires CUDA 12.8, driver reports "+cuda.Original(), hint)
			return
		}
		r.add(LevelWarning, "compute", "compute capability "+capStr+" (sm_"+smTag(capStr)+")", hint)
	default:
		r.add(LevelInfo, "compute", "compute capability "+capStr, "")
	}
}

func smTag(capStr string) string { return strings.ReplaceAll(capStr, ".", "") }

func checkVRAM(r *Report, mib int, base *config.RunnerConfig) {
	tier := config.TierFor(mib)
	rec := config.DefaultRunner()
	if base != nil {
		rec = *base
	}
	rec = rec.ForVRAM(mib)
	r.Tier = &tier
	r.Recommended = &rec
	if mib < 8*1024 {
		r.add(LevelWarning, "vram", fmt.Sprintf("%d MiB VRAM", mib),
			"Expect CUDA out of memory with large pages. Use Small/Base mode and lower MAX_CONCURRENCY.")
		return
	}
	r.add(LevelInfo, "vram", fmt.Sprintf("%d MiB VRAM, %s tier", mib, tier.Name), "")
}

func checkWSLDriver(r *Report, env Env) {
	if !r.inWSL() || env.Glob == nil {
		return
	}
	libs, _ := env.Glob("/usr/lib/wsl/lib/libcuda.so*")
	if len(libs) == 0 {
		r.add(LevelError, "wsl", "libcuda.so missing from /usr/lib/wsl/lib",
			"Update the Windows NVIDIA driver and run `wsl --update`, then `wsl --shutdown`.")
		return
	}
	r.add(LevelInfo, "wsl", "WSL CUDA library "+filepath.Base(libs[0]), "")
}

func checkHFToken(r *Report, env Env) {
	for _, k := range []string{"HF_TOKEN", "HUGGING_FACE_HUB_TOKEN"} {
		if env.Getenv(k) != "" {
			r.add(LevelInfo, "hf", "Hugging Face token from "+k, "")
			return
		}
	}
	if env.HomeDir != "" && env.ReadFile != nil {
		if b, err := env.ReadFile(filepath.Join(env.HomeDir, ".cache", "huggingface", "token")); err == nil && strings.TrimSpace(string(b)) != "" {
			r.add(LevelInfo, "hf", "Hugging Face token from ~/.cache/huggingface/token", "")
			return
		}
	}
	r.add(LevelWarning, "hf", "no Hugging Face token", "Gated or rate-limited model downloads fail without one.\nRun `huggingface-cli login` or export HF_TOKEN.")
}

func checkPython(r *Report, env Env) {
	if env.Getenv("VIRTUAL_ENV") == "" {
		r.add(LevelWarning, "python", "no virtual environment active", "Activate the venv that has vLLM installed: source venv/bin/activate")
	} else {
		r.add(LevelInfo, "python", "venv "+env.Getenv("VIRTUAL_ENV"), "")
	}
	if env.LookPath == nil {
		return
	}
	if _, err := env.LookPath("nvcc"); err != nil {
		r.add(LevelInfo, "python", "nvcc not found (only needed to build optional kernels such as flash-attn)", "")
	}
}

func checkLocale(r *Report, env Env) {
	var name, val string
	for _, k := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if v := env.Getenv(k); v != "" {
			name, val = k, v
			break
		}
	}
	l := strings.ToLower(val)
	if strings.Contains(l, "utf-8") || strings.Contains(l, "utf8") {
		r.add(LevelInfo, "locale", name+"="+val, "")
		return
	}
	title := "no UTF-8 locale"
	if val != "" {
		title = "non UTF-8 locale " + name + "=" + val
	}
	r.add(LevelWarning, "locale", title, "export LANG=en_US.UTF-8 LC_ALL=en_US.UTF-8")
}

func checkOutput(r *Report, env Env, opts Options) {
	if opts.OutputPath == "" || env.WritableDir == nil {
		return
	}
	if err := env.WritableDir(opts.OutputPath); err != nil {
		r.add(LevelError, "output", "OUTPUT_PATH "+opts.OutputPath+" is not writable", err.Error())
		return
	}
	r.add(LevelInfo, "output", "OUTPUT_PATH "+opts.OutputPath+" writable", "")
}

func checkService(ctx context.Context, r *Report, opts Options) {
	if opts.ServiceURL == "" {
		return
	}
	h, err := ocrclient.New(opts.ServiceURL).HealthDetails(ctx)
	if err != nil {
		r.add(LevelError, "service", "OCR service at "+opts.ServiceURL+" unhealthy: "+err.Error(), "Start it with `ocrd serve`.")
		return
	}
	if h.Backend == "stub" {
		r.add(LevelWarning, "service", "OCR service answers from the stub backend", "vLLM is not reachable from the service; check --vllm-url.")
		return
	}
	r.add(LevelInfo, "service", fmt.Sprintf("OCR service %s (backend %s, model loaded %t)", h.Status, h.Backend, h.ModelLoaded), "")
}

// parseGPUs reads nvidia-smi csv rows: name, driver, memory MiB, compute cap.
func parseGPUs(out string) (GPU, error) {
	var gpu GPU
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		gpu.Count++
		if gpu.Count > 1 {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 4 {
			return gpu, fmt.Errorf("want 4 fields, got %d in %q", len(fields), line)
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		mem, err := strconv.Atoi(fields[2])
		if err != nil {
			return gpu, fmt.Errorf("memory.total %q: %w", fields[2], err)
		}
		gpu.Name, gpu.Driver, gpu.MemoryMiB, gpu.ComputeCap = fields[0], fields[1], mem, fields[3]
	}
	if gpu.Count == 0 {
		return gpu, fmt.Errorf("no GPUs listed")
	}
	return gpu, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
