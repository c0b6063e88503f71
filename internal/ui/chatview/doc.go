// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chatview is the Bubble Tea front end of the chat widget.

It renders a widget.Widget: a header with the enabled tabs, the model selector
and the theme toggle; the chat, thoughts and flow tabs; an optional request
context pane; and the message input. Conversation state is never copied into
the view. The session store publishes snapshots, a bridge coalesces them, and
the view redraws from the latest one.

# Keys

	enter        send (or send the highlighted follow-up when the input is empty)
	alt+enter    newline
	tab          next tab        shift+tab  previous tab
	ctrl+o       next model      ctrl+t     toggle theme
	ctrl+k       context pane    ctrl+f     cycle follow-ups
	ctrl+y       copy last reply ctrl+c     quit

Inside the context pane, tab and shift+tab move between fields, ctrl+a adds an
override, ctrl+d removes the focused one and esc closes the pane.
*/
package chatview
