package tools

import "context"

type noArgs struct{}

type listExtensionsTool struct {
	reg *Registry
}

func (t *listExtensionsTool) kind() Kind { return KindListExtensions }

func (t *listExtensionsTool) description() string {
	return "Lists all registered extensions/tools."
}

func (t *listExtensionsTool) arguments() any { return &noArgs{} }

func (t *listExtensionsTool) execute(_ context.Context, argText string) (string, error) {
	var args noArgs
	if err := decodeArgs(argText, &args); err != nil {
		return marshalToolResponse(t.kind().String(), nil, err)
	}
	return t.reg.ListAvailableExtensions(), nil
}

type describeTool struct {
	reg *Registry
}

func (t *describeTool) kind() Kind { return KindDescribe }

func (t *describeTool) description() string {
	return "Provides detailed descriptions of all registered tools."
}

func (t *describeTool) arguments() any { return &noArgs{} }

func (t *describeTool) execute(_ context.Context, argText string) (string, error) {
	var args noArgs
	if err := decodeArgs(argText, &args); err != nil {
		return marshalToolResponse(t.kind().String(), nil, err)
	}
	return t.reg.DescribeTools(), nil
}
