package cache

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/murvsim/timing/pipeline"
)

// Profiler is a hook that replays the fetches and data accesses of a
// running pipeline through an instruction cache and a data cache. It only
// observes; the pipeline timing does not depend on the caches.
type Profiler struct {
	icache *Cache
	dcache *Cache

	lastFetchSeq uint64
	lastMemSeq   uint64
}

// NewProfiler creates a profiler with the given cache geometries.
func NewProfiler(icache, dcache Config) *Profiler {
	return &Profiler{
		icache: New(icache),
		dcache: New(dcache),
	}
}

// ICache returns the instruction cache.
func (p *Profiler) ICache() *Cache {
	return p.icache
}

// DCache returns the data cache.
func (p *Profiler) DCache() *Cache {
	return p.dcache
}

// Reset clears both caches.
func (p *Profiler) Reset() {
	p.icache.Reset()
	p.dcache.Reset()
	p.lastFetchSeq = 0
	p.lastMemSeq = 0
}

// Func records the accesses of the cycle described by the hook item.
func (p *Profiler) Func(ctx sim.HookCtx) {
	snap, ok := ctx.Item.(pipeline.Snapshot)
	if !ok {
		return
	}

	// A pipeline restarted by a reset counts cycles from 1 again.
	if snap.Cycle == 1 {
		p.Reset()
	}

	if snap.IFID.Valid && snap.IFID.Seq != p.lastFetchSeq {
		p.lastFetchSeq = snap.IFID.Seq
		p.icache.Read(snap.IFID.PC)
	}

	memwb := snap.MEMWB
	if !memwb.Valid || memwb.Inst == nil || memwb.Seq == p.lastMemSeq {
		return
	}
	p.lastMemSeq = memwb.Seq

	switch {
	case memwb.Inst.IsLoad():
		p.dcache.Read(memwb.ALUOutput)
	case memwb.Inst.IsStore():
		p.dcache.Write(memwb.ALUOutput)
	}
}
