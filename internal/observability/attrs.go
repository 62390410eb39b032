package observability

import "go.opentelemetry.io/otel/attribute"

func componentAttr(v string) attribute.KeyValue { return attribute.String("component", v) }
func operationAttr(v string) attribute.KeyValue { return attribute.String("operation", v) }
func kindAttr(v string) attribute.KeyValue      { return attribute.String("error_kind", v) }
