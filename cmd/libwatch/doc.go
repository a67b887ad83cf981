// Command libwatch tracks Plex library sizes and show airing status,
// reports changes to Discord, and writes Kometa overlay files. It can
// run a single watcher pass from the command line or stay resident and
// run the watchers on their cron schedules.
package main
