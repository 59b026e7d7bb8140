package tracing

import (
	"context"

	"github.com/run-bigpig/agent-guard/pkg/interfaces"
	"github.com/run-bigpig/agent-guard/pkg/modelarmor"
)

// Classifier is anything that classifies text with Model Armor
type Classifier interface {
	Classify(ctx context.Context, op modelarmor.Operation, text string) modelarmor.Verdict
}

// ClassifierMiddleware wraps a Classifier with a span per call
type ClassifierMiddleware struct {
	classifier Classifier
	tracer     interfaces.Tracer
}

// NewClassifierMiddleware creates a new ClassifierMiddleware
func NewClassifierMiddleware(classifier Classifier, tracer interfaces.Tracer) *ClassifierMiddleware {
	return &ClassifierMiddleware{
		classifier: classifier,
		tracer:     tracer,
	}
}

// Classify implements Classifier
func (m *ClassifierMiddleware) Classify(ctx context.Context, op modelarmor.Operation, text string) modelarmor.Verdict {
	ctx, span := m.tracer.StartSpan(ctx, "modelarmor.classify")
	defer span.End()

	span.SetAttribute("modelarmor.operation", op.String())
	span.SetAttribute("text.length", len(text))

	verdict := m.classifier.Classify(ctx, op, text)

	span.SetAttribute("modelarmor.findings", len(verdict.Findings))
	span.SetAttribute("modelarmor.unsafe", verdict.Unsafe())
	return verdict
}
