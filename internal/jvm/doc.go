// Package jvm enumerates local JVMs and reads their properties through the
// JDK's jps and jcmd commands.
package jvm
