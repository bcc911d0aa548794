package engine

import (
	"slices"
	"time"

	"go.uber.org/zap"
)

// Step advances the world one frame
//
// Order:
//  1. activation pass, pre-order, for nodes added before the pass began
//  2. StageInput then StageInteraction systems
//  3. simulation pass: dt is added to an accumulator and one pre-order
//     SimulationUpdate walk runs per whole SimStep it holds; the remainder carries over
//  4. variable update pass, parent before child; each node's world transform is
//     refreshed after its own aspects update and before its children run
//  5. teardown of nodes queued with QueueDestroy
//  6. StageRender systems
//
// A panic in any hook or system is recovered, logged and counted; the frame continues
func (w *World) Step(dt time.Duration) {
	w.inFrame = true
	defer func() { w.inFrame = false }()

	w.activationPass()
	w.runStage(StageInput, dt)
	w.runStage(StageInteraction, dt)
	w.simulationPass(dt)
	w.updatePass(dt)
	w.teardownPass()
	w.runStage(StageRender, dt)

	w.frame++
	w.elapsed += dt
	w.Status.Inc(MetricFrames)
}

// InFrame reports whether Step is running
func (w *World) InFrame() bool { return w.inFrame }

func (w *World) activationPass() {
	// Nodes created by activation hooks wait for the next frame
	var due []NodeID
	w.Walk(w.root, func(id NodeID) bool {
		n := w.node(id)
		if n.doomed {
			return false
		}
		if n.state == nodePending {
			due = append(due, id)
		} else if rec, ok := w.entities[n.entity]; ok && !rec.active {
			due = append(due, id)
		}
		return true
	})
	for _, id := range due {
		n := w.node(id)
		if n == nil || n.doomed {
			continue
		}
		n.state = nodeActive
		if rec, ok := w.entities[n.entity]; ok && !rec.active {
			w.activateEntity(rec)
		}
	}
}

func (w *World) simulationPass(dt time.Duration) {
	if w.simStep <= 0 {
		return
	}
	w.simAccum += dt
	for w.simAccum >= w.simStep {
		w.simAccum -= w.simStep
		w.simSteps++
		w.Status.Inc(MetricSimSteps)
		w.Walk(w.root, func(id NodeID) bool {
			n := w.node(id)
			if n == nil || n.doomed || n.state != nodeActive {
				return false
			}
			if rec, ok := w.entities[n.entity]; ok && rec.active {
				for _, a := range slices.Clone(rec.aspects) {
					if !a.aspectBase().caps.Has(CapSimulate) {
						continue
					}
					s := a.(SimulationUpdatable)
					w.safe(a.TypeName()+".SimulationUpdate", func() { s.SimulationUpdate(w.simStep) })
				}
			}
			return true
		})
	}
}

func (w *World) updatePass(dt time.Duration) {
	w.Walk(w.root, func(id NodeID) bool {
		n := w.node(id)
		if n == nil || n.doomed || n.state != nodeActive {
			return false
		}
		if rec, ok := w.entities[n.entity]; ok && rec.active {
			for _, a := range slices.Clone(rec.aspects) {
				if !a.aspectBase().caps.Has(CapUpdate) {
					continue
				}
				u := a.(Updatable)
				w.safe(a.TypeName()+".VariableUpdate", func() { u.VariableUpdate(dt) })
			}
		}
		w.WorldTransform(id)
		return true
	})
}

func (w *World) teardownPass() {
	var doomed []NodeID
	w.Walk(w.root, func(id NodeID) bool {
		if w.node(id).doomed {
			doomed = append(doomed, id)
			return false
		}
		return true
	})
	for _, id := range doomed {
		path := w.Path(id)
		if err := w.DestroyNode(id); err != nil {
			w.Log.Warn("teardown failed", zap.String("node", path), zap.Error(err))
			continue
		}
		w.Log.Debug("node torn down", zap.String("node", path))
	}
}
