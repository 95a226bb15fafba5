package hooks

// Kind identifies one resource hook
type Kind int

const (
	None Kind = iota
	BeforeCreate
	AfterCreate
	BeforeRead
	AfterRead
	BeforeUpdate
	AfterUpdate
	BeforeDelete
	AfterDelete
	OnReturn
	BeforeUpdateRelationship
	AfterUpdateRelationship
	BeforeImplicitUpdateRelationship
)

// String returns the string representation of the hook kind
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case BeforeCreate:
		return "before_create"
	case AfterCreate:
		return "after_create"
	case BeforeRead:
		return "before_read"
	case AfterRead:
		return "after_read"
	case BeforeUpdate:
		return "before_update"
	case AfterUpdate:
		return "after_update"
	case BeforeDelete:
		return "before_delete"
	case AfterDelete:
		return "after_delete"
	case OnReturn:
		return "on_return"
	case BeforeUpdateRelationship:
		return "before_update_relationship"
	case AfterUpdateRelationship:
		return "after_update_relationship"
	case BeforeImplicitUpdateRelationship:
		return "before_implicit_update_relationship"
	default:
		return "unknown"
	}
}

// supportsDatabaseValues returns true for hooks that can receive the stored state of the
// resources they are called with
func (k Kind) supportsDatabaseValues() bool {
	switch k {
	case BeforeUpdate, BeforeDelete, BeforeUpdateRelationship:
		return true
	}
	return false
}

// Pipeline identifies the operation on whose behalf hooks are fired. It is passed through to
// every hook unchanged.
type Pipeline int

const (
	PipelineNone Pipeline = iota
	PipelineGet
	PipelineGetSingle
	PipelineGetRelationship
	PipelinePost
	PipelinePatch
	PipelinePatchRelationship
	PipelineDelete
)

// String returns the string representation of the pipeline
func (p Pipeline) String() string {
	switch p {
	case PipelineNone:
		return "none"
	case PipelineGet:
		return "get"
	case PipelineGetSingle:
		return "get_single"
	case PipelineGetRelationship:
		return "get_relationship"
	case PipelinePost:
		return "post"
	case PipelinePatch:
		return "patch"
	case PipelinePatchRelationship:
		return "patch_relationship"
	case PipelineDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// singleResult returns true for pipelines that must never yield more than one root resource
func (p Pipeline) singleResult() bool {
	return p == PipelineGetSingle
}
