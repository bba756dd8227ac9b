package processors

func init() {
	Register(CapabilitySmooth, func() Processor { return movingAverage{window: 5} })
	Register(CapabilityDecimate, func() Processor { return decimator{factor: 2} })
}

// movingAverage replaces each sample with the mean of a centered window.
type movingAverage struct {
	window int
}

func (p movingAverage) Process(series []float64) []float64 {
	if len(series) == 0 || p.window <= 1 {
		return append([]float64(nil), series...)
	}
	half := p.window / 2
	out := make([]float64, len(series))
	for i := range series {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(series)-1 {
			hi = len(series) - 1
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += series[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// decimator keeps every factor-th sample, always including the first.
type decimator struct {
	factor int
}

func (p decimator) Process(series []float64) []float64 {
	if p.factor <= 1 {
		return append([]float64(nil), series...)
	}
	out := make([]float64, 0, len(series)/p.factor+1)
	for i := 0; i < len(series); i += p.factor {
		out = append(out, series[i])
	}
	return out
}
