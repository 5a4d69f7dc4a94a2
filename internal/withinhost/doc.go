// Package withinhost implements the target-cell limited model of viral
// dynamics under antiviral treatment:
//
//	dT/dt = -beta*T*V
//	dI/dt =  beta*T*V - delta*I
//	dV/dt =  p(t)*I - c*V
//
// where p(t) is a production-rate schedule from package production.
// [Model] is a forward model: it maps five parameters and a time grid
// to log10 virus loads, optionally floored at the assay's limit of
// quantification.
package withinhost
