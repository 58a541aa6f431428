// Package popup implements the lifecycle controller for anchored popups:
// delayed opening, trigger-to-action mapping, and the checkpoints at which a
// popup surface gets its content and is attached to or detached from the
// visible document.
//
// Rendering, animation, content instantiation and document insertion are
// supplied by the host through the Surface, ContentInjector, Attacher and
// Scheduler interfaces. All controller methods must be called from the
// host's UI loop, and the Scheduler must deliver timer callbacks on that
// same loop.
package popup
