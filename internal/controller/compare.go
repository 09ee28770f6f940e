package controller

import (
	"sort"
	"strings"
)

// SameConfig reports whether two controllers share the same hardware shape:
// the same number of modules and, once modules are sorted by product type,
// pairwise equal product types, sensor counts and device counts; with
// sensors sorted by particle-sensor code and devices sorted by device-type
// code, pairwise equal names.
//
// Sorting happens on copies, so the result does not depend on the order
// the backend listed anything in and neither controller is modified.
// The first mismatch at any level returns false.
func SameConfig(a, b *Controller) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Modules) != len(b.Modules) {
		return false
	}

	am := sortedModules(a.Modules)
	bm := sortedModules(b.Modules)

	for i := range am {
		ma, mb := am[i], bm[i]
		if ma.ProductType != mb.ProductType {
			return false
		}
		if len(ma.Sensors) != len(mb.Sensors) || len(ma.Devices) != len(mb.Devices) {
			return false
		}

		as, bs := sortedSensors(ma.Sensors), sortedSensors(mb.Sensors)
		for j := range as {
			if as[j].Name != bs[j].Name {
				return false
			}
		}

		ad, bd := sortedDevices(ma.Devices), sortedDevices(mb.Devices)
		for j := range ad {
			if ad[j].Name != bd[j].Name {
				return false
			}
		}
	}
	return true
}

// sortedModules orders modules by product type. Ties are broken by the
// module's sensor/device name signature so that two modules of the same
// product type always line up the same way regardless of input order.
func sortedModules(in []Module) []Module {
	out := cloneSlice(in)
	sigs := make(map[int]string, len(out))
	for i := range out {
		sigs[i] = moduleSignature(out[i])
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		mi, mj := out[idx[i]], out[idx[j]]
		if mi.ProductType != mj.ProductType {
			return mi.ProductType < mj.ProductType
		}
		return sigs[idx[i]] < sigs[idx[j]]
	})
	sorted := make([]Module, len(out))
	for i, k := range idx {
		sorted[i] = out[k]
	}
	return sorted
}

func sortedSensors(in []Sensor) []Sensor {
	out := cloneSlice(in)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ParticleSensor != out[j].ParticleSensor {
			return out[i].ParticleSensor < out[j].ParticleSensor
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func sortedDevices(in []Device) []Device {
	out := cloneSlice(in)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DeviceType != out[j].DeviceType {
			return out[i].DeviceType < out[j].DeviceType
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func moduleSignature(m Module) string {
	var b strings.Builder
	for _, s := range sortedSensors(m.Sensors) {
		b.WriteString(s.Name)
		b.WriteByte(0)
	}
	b.WriteByte(1)
	for _, d := range sortedDevices(m.Devices) {
		b.WriteString(d.Name)
		b.WriteByte(0)
	}
	return b.String()
}
