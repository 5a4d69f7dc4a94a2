package integrators

import (
	"math"

	"github.com/san-kum/hostsim/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// errorExponent is -1/(q+1) for the embedded 4th order estimate.
const errorExponent = -1.0 / 5.0

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// Step takes one Dormand-Prince step of fixed size dt.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	newX, _, _ := r.StepAdaptive(dyn, x, dyn.Derive(x, t), t, dt, 1, 1)
	return newX
}

// StepAdaptive takes one step from x with derivative k1 = f(t, x) and
// returns the 5th order solution, its derivative (first-same-as-last) and
// the RMS error norm scaled by atol + rtol*max(|x|, |x_new|). A norm <= 1
// means the step meets the tolerance.
func (r *RK45) StepAdaptive(dyn dynamo.System, x, k1 dynamo.State, t, dt, rtol, atol float64) (dynamo.State, dynamo.State, float64) {
	n := len(x)
	tmp := make(dynamo.State, n)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*b21*k1[i]
	}
	k2 := dyn.Derive(tmp, t+a2*dt)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3 := dyn.Derive(tmp, t+a3*dt)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := dyn.Derive(tmp, t+a4*dt)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := dyn.Derive(tmp, t+a5*dt)

	for i := 0; i < n; i++ {
		tmp[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := dyn.Derive(tmp, t+dt)

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7 := dyn.Derive(xNew, t+dt)

	if n == 0 {
		return xNew, k7, 0
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := atol + rtol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		e := errEst / scale
		sum += e * e
	}

	return xNew, k7, math.Sqrt(sum / float64(n))
}

// nextScale returns the factor applied to dt after a step with the given
// error norm.
func (r *RK45) nextScale(errNorm float64, rejectedBefore bool) float64 {
	if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) {
		return r.minScale
	}
	if errNorm > 1 {
		return math.Max(r.minScale, r.safety*math.Pow(errNorm, errorExponent))
	}
	scale := r.maxScale
	if errNorm > 0 {
		scale = math.Min(r.maxScale, r.safety*math.Pow(errNorm, errorExponent))
	}
	if rejectedBefore {
		scale = math.Min(1, scale)
	}
	return scale
}

// initialStep estimates a first step size (Hairer, Norsett & Wanner, II.4).
func initialStep(dyn dynamo.System, t0 float64, y0, f0 dynamo.State, span, rtol, atol float64) float64 {
	n := len(y0)
	if n == 0 || span <= 0 {
		return span
	}

	rms := func(v func(i int) float64) float64 {
		sum := 0.0
		for i := 0; i < n; i++ {
			x := v(i)
			sum += x * x
		}
		return math.Sqrt(sum / float64(n))
	}

	scale := make([]float64, n)
	for i := range y0 {
		scale[i] = atol + math.Abs(y0[i])*rtol
	}
	d0 := rms(func(i int) float64 { return y0[i] / scale[i] })
	d1 := rms(func(i int) float64 { return f0[i] / scale[i] })

	h0 := 0.01 * d0 / d1
	if d0 < 1e-5 || d1 < 1e-5 {
		h0 = 1e-6
	}
	h0 = math.Min(h0, span)

	y1 := make(dynamo.State, n)
	for i := range y0 {
		y1[i] = y0[i] + h0*f0[i]
	}
	f1 := dyn.Derive(y1, t0+h0)
	d2 := rms(func(i int) float64 { return (f1[i] - f0[i]) / scale[i] }) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1.0/5.0)
	}

	return math.Min(math.Min(100*h0, h1), span)
}
