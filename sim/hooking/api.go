package hooking

// StartTask notifies the hooks that hook to the domain about the start of a
// task. The task is located at the domain unless where is given.
func StartTask(
	domain NamedHookable,
	id, parentID, kind, what, where string,
) {
	if domain.NumHooks() == 0 {
		return
	}

	allRequiredFieldsMustBeNotEmpty(id, kind, what)

	if where == "" {
		where = domain.Name()
	}

	domain.InvokeHook(HookCtx{
		Domain: domain,
		Pos:    HookPosTaskStart,
		Item: TaskStart{
			ID:       id,
			ParentID: parentID,
			Kind:     kind,
			What:     what,
			Where:    where,
		},
	})
}

func allRequiredFieldsMustBeNotEmpty(id, kind, what string) {
	if id == "" {
		panic("id must not be empty")
	}

	if kind == "" {
		panic("kind must not be empty")
	}

	if what == "" {
		panic("what must not be empty")
	}
}

// AddTaskStep marks that a milestone has been reached when processing a task.
func AddTaskStep(
	domain NamedHookable,
	taskID, stepID, kind, what, detail string,
) {
	if domain.NumHooks() == 0 {
		return
	}

	domain.InvokeHook(HookCtx{
		Domain: domain,
		Pos:    HookPosTaskStep,
		Item: TaskStep{
			TaskID: taskID,
			StepID: stepID,
			Kind:   kind,
			What:   what,
			Detail: detail,
		},
	})
}

// TagTask attaches a tag to a task.
func TagTask(domain NamedHookable, taskID, what, detail string) {
	if domain.NumHooks() == 0 {
		return
	}

	domain.InvokeHook(HookCtx{
		Domain: domain,
		Pos:    HookPosTaskTag,
		Item: TaskTag{
			TaskID: taskID,
			What:   what,
			Detail: detail,
		},
	})
}

// EndTask notifies the hooks about the end of a task.
func EndTask(domain NamedHookable, id string) {
	if domain.NumHooks() == 0 {
		return
	}

	domain.InvokeHook(HookCtx{
		Domain: domain,
		Pos:    HookPosTaskEnd,
		Item:   TaskEnd{ID: id},
	})
}
