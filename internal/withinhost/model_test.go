package withinhost_test

import (
	"errors"
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/hostsim/internal/dynamo"
	"github.com/san-kum/hostsim/internal/integrators"
	"github.com/san-kum/hostsim/internal/production"
	"github.com/san-kum/hostsim/internal/withinhost"
)

var paperParams = []float64{1.81e-6, 7.07, 0.661, 14.8, 0.9738}

func dailyTimes() []float64 {
	times := make([]float64, 8)
	for i := range times {
		times[i] = float64(i)
	}
	return times
}

func paperModel(policy production.Policy, tol float64, loq bool) *withinhost.Model {
	cfg := withinhost.DefaultConfig()
	cfg.Mode = withinhost.Adaptive(tol)
	cfg.Treatment.Policy = policy
	cfg.LimitOfQuantification = loq
	return withinhost.New(cfg)
}

func maxAbsDiff(a, b []float64) float64 {
	worst := 0.0
	for i := range a {
		worst = math.Max(worst, math.Abs(a[i]-b[i]))
	}
	return worst
}

var _ = Describe("Model", func() {
	It("has five parameters", func() {
		Expect(withinhost.New(withinhost.DefaultConfig()).NParameters()).To(Equal(5))
	})

	Describe("Simulate", func() {
		It("reproduces the reference scenario", func() {
			m := paperModel(production.PolicyStep, 1e-13, false)
			out, err := m.Simulate(paperParams, dailyTimes())

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(8))
			Expect(out[0]).To(BeNumerically("~", -3.42, 1e-9))
			for _, v := range out {
				Expect(math.IsNaN(v) || math.IsInf(v, 0)).To(BeFalse())
			}

			peak := 0
			for i, v := range out {
				if v > out[peak] {
					peak = i
				}
			}
			Expect(out[peak]).To(BeNumerically(">", 5))
			Expect(out[7]).To(BeNumerically("<", out[peak]))
		})

		It("is deterministic across calls", func() {
			m := paperModel(production.PolicyTanh, 1e-8, true)
			a, err := m.Simulate(paperParams, dailyTimes())
			Expect(err).NotTo(HaveOccurred())
			b, err := m.Simulate(paperParams, dailyTimes())
			Expect(err).NotTo(HaveOccurred())
			Expect(b).To(Equal(a))
		})

		It("never returns values below the limit of quantification when it applies", func() {
			m := paperModel(production.PolicyStep, 1e-8, true)
			out, err := m.Simulate(paperParams, dailyTimes())
			Expect(err).NotTo(HaveOccurred())
			for _, v := range out {
				Expect(v).To(BeNumerically(">=", withinhost.LogLimitOfQuantification))
			}
			Expect(out[0]).To(BeNumerically("~", 0.7, 1e-12))
		})

		It("can go below the limit of quantification when it does not apply", func() {
			m := paperModel(production.PolicyStep, 1e-10, false)
			out, err := m.Simulate(paperParams, dailyTimes())
			Expect(err).NotTo(HaveOccurred())
			Expect(out[0]).To(BeNumerically("<", withinhost.LogLimitOfQuantification))
		})

		It("converges as the tolerance tightens", func() {
			times := dailyTimes()
			ref, err := paperModel(production.PolicyStep, 1e-12, true).Simulate(paperParams, times)
			Expect(err).NotTo(HaveOccurred())

			coarse, err := paperModel(production.PolicyStep, 1e-3, true).Simulate(paperParams, times)
			Expect(err).NotTo(HaveOccurred())
			fine, err := paperModel(production.PolicyStep, 1e-8, true).Simulate(paperParams, times)
			Expect(err).NotTo(HaveOccurred())

			Expect(maxAbsDiff(fine, ref)).To(BeNumerically("<", maxAbsDiff(coarse, ref)))
			Expect(maxAbsDiff(fine, ref)).To(BeNumerically("<", 1e-3))
		})

		It("keeps the trajectory identical to the untreated model before treatment", func() {
			times := []float64{0, 1, 2, 2.5}
			treated, err := paperModel(production.PolicyStep, 1e-10, false).Simulate(paperParams, times)
			Expect(err).NotTo(HaveOccurred())

			untreatedParams := append([]float64(nil), paperParams...)
			untreatedParams[4] = 0
			untreated, err := paperModel(production.PolicyStep, 1e-10, false).Simulate(untreatedParams, times)
			Expect(err).NotTo(HaveOccurred())

			Expect(maxAbsDiff(treated, untreated)).To(BeNumerically("<", 1e-6))
		})

		It("is safe for concurrent callers", func() {
			m := paperModel(production.PolicyStep, 1e-6, true)
			want, err := m.Simulate(paperParams, dailyTimes())
			Expect(err).NotTo(HaveOccurred())

			var wg sync.WaitGroup
			results := make([][]float64, 8)
			for i := range results {
				wg.Add(1)
				go func(idx int) {
					defer wg.Done()
					defer GinkgoRecover()
					out, err := m.Simulate(paperParams, dailyTimes())
					Expect(err).NotTo(HaveOccurred())
					results[idx] = out
				}(i)
			}
			wg.Wait()

			for _, r := range results {
				Expect(r).To(Equal(want))
			}
		})
	})

	Describe("solver configuration", func() {
		It("switches between fixed and adaptive modes", func() {
			m := withinhost.New(withinhost.DefaultConfig())

			m.SetStepSize(0.01)
			Expect(m.Config().Mode.Kind()).To(Equal(withinhost.KindFixed))
			Expect(m.Config().Mode.Value()).To(Equal(0.01))

			m.SetTolerance(1e-9)
			Expect(m.Config().Mode.Kind()).To(Equal(withinhost.KindAdaptive))
			Expect(m.Config().Mode.Value()).To(Equal(1e-9))
		})

		It("agrees with adaptive integration when run with a small fixed step", func() {
			cfg := withinhost.DefaultConfig()
			cfg.Method = integrators.MethodRK4
			m := withinhost.New(cfg)
			m.SetStepSize(1e-3)
			fixed, err := m.Simulate(paperParams, dailyTimes())
			Expect(err).NotTo(HaveOccurred())

			adaptive, err := paperModel(production.PolicyStep, 1e-10, true).Simulate(paperParams, dailyTimes())
			Expect(err).NotTo(HaveOccurred())

			Expect(maxAbsDiff(fixed, adaptive)).To(BeNumerically("<", 1e-2))
		})

		It("reports adaptive settings on a fixed-step method as invalid", func() {
			cfg := withinhost.DefaultConfig()
			cfg.Method = integrators.MethodEuler
			_, err := withinhost.New(cfg).Simulate(paperParams, dailyTimes())
			Expect(errors.Is(err, dynamo.ErrInvalidArgument)).To(BeTrue())
		})
	})

	DescribeTable("invalid arguments",
		func(params, times []float64, msg string) {
			_, err := withinhost.New(withinhost.DefaultConfig()).Simulate(params, times)
			Expect(errors.Is(err, dynamo.ErrInvalidArgument)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(msg))
		},
		Entry("too few parameters", paperParams[:4], []float64{0, 1}, "expected 5 parameters"),
		Entry("too many parameters", append(append([]float64(nil), paperParams...), 0.1), []float64{0, 1}, "expected 5 parameters"),
		Entry("empty grid", paperParams, []float64{}, "empty time grid"),
		Entry("unsorted grid", paperParams, []float64{0, 2, 1}, "sorted"),
		Entry("negative time", paperParams, []float64{-1, 0}, "negative time"),
		Entry("NaN time", paperParams, []float64{math.NaN(), 1}, "non-finite time"),
		Entry("infinite time", paperParams, []float64{0, math.Inf(1)}, "non-finite time"),
	)

	It("fails instead of taking log10 of a non-positive virus load", func() {
		cfg := withinhost.DefaultConfig()
		cfg.Method = integrators.MethodEuler
		cfg.Mode = withinhost.Fixed(0.5)
		cfg.LimitOfQuantification = false
		_, err := withinhost.New(cfg).Simulate(paperParams, []float64{0, 0.5, 1, 1.5})
		Expect(errors.Is(err, dynamo.ErrIntegrationFailure)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("non-positive virus load"))
	})

	It("reports a non-finite rate constant as an invalid state", func() {
		params := append([]float64(nil), paperParams...)
		params[0] = math.NaN()
		_, err := withinhost.New(withinhost.DefaultConfig()).Simulate(params, dailyTimes())
		Expect(errors.Is(err, dynamo.ErrInvalidState)).To(BeTrue())
		Expect(errors.Is(err, dynamo.ErrIntegrationFailure)).To(BeTrue())
	})

	It("surfaces integration failures", func() {
		cfg := withinhost.DefaultConfig()
		cfg.MaxSteps = 5
		cfg.Mode = withinhost.Adaptive(1e-12)
		_, err := withinhost.New(cfg).Simulate(paperParams, dailyTimes())
		Expect(errors.Is(err, dynamo.ErrIntegrationFailure)).To(BeTrue())
		Expect(errors.Is(err, dynamo.ErrMaxSteps)).To(BeTrue())
	})
})
