// Copyright 2015 Ka-Hing Cheung
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Modificado para fdupe: nombres y comentarios en español, colores según
// la salida configurada y configuración global aplicada también a los
// loggers creados después.

// Package logging entrega loggers logrus con nombre y un formato de una línea.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var mu sync.Mutex
var loggers = make(map[string]*LogHandle)

// Configuración vigente; se aplica a los loggers existentes y a los nuevos.
var level = logrus.InfoLevel
var output io.Writer = os.Stderr
var logID string
var colorful = isatty.IsTerminal(os.Stderr.Fd())

var framePlaceHolder = runtime.Frame{Function: "???", File: "???", Line: 0}

// LogHandle es un logrus.Logger con nombre propio.
type LogHandle struct {
	logrus.Logger

	name     string
	logid    string
	pid      int
	colorful bool
}

func (l *LogHandle) Format(e *logrus.Entry) ([]byte, error) {
	lvlStr := strings.ToUpper(e.Level.String())
	if l.colorful {
		var color int
		switch e.Level {
		case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
			color = 31 // RED
		case logrus.WarnLevel:
			color = 33 // YELLOW
		case logrus.InfoLevel:
			color = 34 // BLUE
		default: // logrus.TraceLevel, logrus.DebugLevel
			color = 35 // MAGENTA
		}
		lvlStr = fmt.Sprintf("\033[1;%dm%s\033[0m", color, lvlStr)
	}
	const timeFormat = "2006/01/02 15:04:05.000000"
	caller := e.Caller
	if caller == nil {
		caller = &framePlaceHolder
	}
	str := fmt.Sprintf("%s%v %s[%d] <%v>: %v [%s@%s:%d]",
		l.logid,
		e.Time.Format(timeFormat),
		l.name,
		l.pid,
		lvlStr,
		strings.TrimRight(e.Message, "\n"),
		MethodName(caller.Function),
		path.Base(caller.File),
		caller.Line)

	if len(e.Data) != 0 {
		str += " " + fmt.Sprint(e.Data)
	}
	if !strings.HasSuffix(str, "\n") {
		str += "\n"
	}
	return []byte(str), nil
}

// MethodName devuelve el nombre legible de una función, sin la ruta del
// paquete ni los sufijos que añade Go a los cierres (func1, init.0).
func MethodName(fullFuncName string) string {
	if i := strings.LastIndex(fullFuncName, "/"); i != -1 && i < len(fullFuncName)-1 {
		fullFuncName = fullFuncName[i+1:]
	}
	lastDot := strings.LastIndex(fullFuncName, ".")
	if lastDot == -1 || lastDot == len(fullFuncName)-1 {
		return fullFuncName
	}
	method := fullFuncName[lastDot+1:]
	isClosure := strings.HasPrefix(method, "func") && len(method) > 4 && method[4] >= '0' && method[4] <= '9'
	isIndex := method[0] >= '0' && method[0] <= '9'
	if isClosure || isIndex {
		if candidate := MethodName(fullFuncName[:lastDot]); candidate != "" {
			method = candidate
		}
	}
	return method
}

func newLogger(name string) *LogHandle {
	l := &LogHandle{Logger: *logrus.New(), name: name, pid: os.Getpid()}
	l.Formatter = l
	l.SetReportCaller(true)
	l.SetLevel(level)
	l.SetOutput(output)
	l.logid = logID
	l.colorful = colorful
	return l
}

// GetLogger devuelve el logger asociado a name, creándolo si no existe.
func GetLogger(name string) *LogHandle {
	mu.Lock()
	defer mu.Unlock()

	if logger, ok := loggers[name]; ok {
		return logger
	}
	logger := newLogger(name)
	loggers[name] = logger
	return logger
}

// SetLogLevel aplica lvl a todos los loggers.
func SetLogLevel(lvl logrus.Level) {
	mu.Lock()
	defer mu.Unlock()
	level = lvl
	for _, logger := range loggers {
		logger.SetLevel(lvl)
	}
}

// DisableLogColor quita los colores de todos los loggers.
func DisableLogColor() {
	mu.Lock()
	defer mu.Unlock()
	colorful = false
	for _, logger := range loggers {
		logger.colorful = false
	}
}

// SetOutput redirige todos los loggers a w. Si w no es una terminal se
// desactivan los colores.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	f, isFile := w.(*os.File)
	output = w
	colorful = isFile && isatty.IsTerminal(f.Fd())
	for _, logger := range loggers {
		logger.SetOutput(w)
		logger.colorful = colorful
	}
}

// SetLogID antepone id a cada línea de todos los loggers.
func SetLogID(id string) {
	mu.Lock()
	defer mu.Unlock()
	logID = id
	for _, logger := range loggers {
		logger.logid = id
	}
}
