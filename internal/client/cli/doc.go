// Package cli is the interactive chat client.
//
// App wires the configured document store into four collection mirrors
// (users, channels, threads and the flat reactions list), the services that
// write through them, the presence tracker and search. runREPL reads one
// command per line:
//
//	login [token|name]   sign in (token when a secret is configured, guest otherwise)
//	channels, open       list and switch channels
//	channel, pm          create a channel or a private conversation
//	post, attach, posts  write and read messages
//	react, reactions     toggle and inspect emoji reactions
//	thread, reply        read and answer threads
//	users                presence of everybody
//	search               find channels and posts
//	name, avatar         edit the profile
//	logout, exit
//
// Every command typed while signed in is reported to the presence tracker
// as activity.
package cli
