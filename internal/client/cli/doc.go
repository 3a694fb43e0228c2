// Package cli implements the interactive operator console for the accounts
// service.
//
// The console reads one command per line, prompts for passwords without echo
// and prints results to stdout. A background watcher pings the server and
// shows "online" or "offline" in the prompt.
//
// Commands:
//
//	available <user>            report whether a user key is free
//	register <user> [k=v ...]   create an account; prompts for password and secrets
//	show <user>                 print an account; empty password shows metadata only
//	verify <user>               check a password
//	passwd <user>               change the password
//	rename <user> <new>         change the user key
//	setmeta <user> k=v ...      replace public metadata
//	setsecret <user> k=v ...    replace sensitive data
//	remove <user>               delete an account; admins may leave the password empty
//	admin <address>             obtain an admin token with the master secret
//	wipe                        delete every account (admin)
//	backup [path]               export a backup and download it (admin)
//	restore <key>               restore accounts from a stored backup (admin)
//	ping                        check server reachability
//	help, exit, quit
package cli
